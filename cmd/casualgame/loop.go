package main

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	coresys "github.com/casualgame/engine/internal/core/system"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/game"
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/hud"
	"github.com/casualgame/engine/internal/render"
	"github.com/casualgame/engine/internal/render/ebitenrender"
)

// gameLoop adapts the system runner to ebiten.Game. Update runs one tick;
// Draw renders the background, the entities and the HUD.
type gameLoop struct {
	runner   *coresys.Runner
	renderer *ebitenrender.Renderer
	entities *entity.Manager
	hud      *hud.HUD
	session  *game.Session
	pkg      *game.Package
	width    int
	height   int
	tick     time.Duration
	log      *zap.Logger

	bgName string
	bg     geom.SpriteID
}

func (g *gameLoop) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if over, _ := g.session.GameOver(); over && inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.session.LoadMap(g.session.CurrentMap())
	}
	g.runner.Tick(g.tick)
	return nil
}

func (g *gameLoop) Draw(screen *ebiten.Image) {
	g.renderer.Begin(screen)
	defer g.renderer.End()

	g.drawBackground()
	game.Draw(g.entities, g.hud)
	if over, score := g.session.GameOver(); over {
		text := fmt.Sprintf("Game over - score %d - press Enter to restart", score)
		g.renderer.DrawString(g.renderer.DefaultFont(), text, geom.Vec(g.width/2-140, g.height/2), render.White)
	}
}

func (g *gameLoop) Layout(_, _ int) (int, int) { return g.width, g.height }

func (g *gameLoop) drawBackground() {
	name := g.session.Background()
	if name != g.bgName {
		if g.bg != 0 {
			g.renderer.FreeSprite(g.bg)
			g.bg = 0
		}
		g.bgName = name
		if name != "" {
			id, err := g.renderer.LoadSprite(g.pkg.Asset("gfx/"+name), 1, 0, 0, 1, false)
			if err != nil {
				g.log.Warn("background load failed", zap.String("file", name), zap.Error(err))
			}
			g.bg = id
		}
	}
	if g.bg != 0 {
		g.renderer.DrawSprite(g.bg, geom.Vector{}, 0, 0, render.SpriteOptions{})
	}
}
