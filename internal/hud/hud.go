// Package hud draws the player overlay: health, the selected ammo item,
// collectables and timed info messages.
package hud

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/render"
	"github.com/casualgame/engine/internal/sound"
)

type MessageColor int

const (
	ColorDefault MessageColor = iota
	ColorGreen
	ColorRed
	ColorYellow
	ColorBlue
)

// MessageColorNames lists the script-visible names of MessageColor values.
var MessageColorNames = []string{
	"HUD_MSG_COLOR_DEFAULT", "HUD_MSG_COLOR_GREEN", "HUD_MSG_COLOR_RED",
	"HUD_MSG_COLOR_YELLOW", "HUD_MSG_COLOR_BLUE",
}

func (c MessageColor) fill() render.Color {
	switch c {
	case ColorGreen:
		return render.RGBA(50, 130, 0, 150)
	case ColorRed:
		return render.RGBA(235, 29, 36, 150)
	case ColorYellow:
		return render.RGBA(135, 135, 0, 150)
	case ColorBlue:
		return render.RGBA(0, 130, 255, 150)
	}
	return render.RGBA(50, 50, 50, 150)
}

const (
	DefaultMessageDuration = 3 * time.Second

	fontW, fontH   = 15, 20
	msgFontW       = 14
	msgIcon        = 50
	iconSize       = 32
	barX, barY     = 65, 15
	barW, barH     = 128, 33
	barPadding     = 5
	collectableGap = 20
)

var textColor = render.RGBA(200, 200, 200, 255)

type ammoItem struct {
	ident    string
	sprite   geom.SpriteID
	cur, max int
}

type collectable struct {
	ident      string
	sprite     geom.SpriteID
	count      int
	drawAlways bool
}

type message struct {
	text    string
	color   MessageColor
	expires time.Time
}

type HUD struct {
	r    render.Renderer
	snd  sound.Player
	log  *zap.Logger
	now  func() time.Time
	font render.FontID
	hint sound.ID

	enabled      bool
	health       int
	ammo         []*ammoItem
	display      int
	collectables []*collectable
	messages     []message
}

// New creates an enabled HUD. snd may be nil.
func New(r render.Renderer, snd sound.Player, log *zap.Logger) *HUD {
	h := &HUD{r: r, snd: snd, log: log, now: time.Now, enabled: true, display: -1}
	font, err := r.LoadFont("Consolas", fontW, fontH)
	if err != nil {
		log.Warn("hud font unavailable, using default", zap.Error(err))
		font = r.DefaultFont()
	}
	h.font = font
	return h
}

// SetHintSound sets the clip played when a message is added.
func (h *HUD) SetHintSound(id sound.ID) { h.hint = id }

func (h *HUD) SetEnabled(v bool) { h.enabled = v }
func (h *HUD) Enabled() bool     { return h.enabled }

func (h *HUD) UpdateHealth(v int) { h.health = max(v, 0) }
func (h *HUD) Health() int        { return h.health }

func (h *HUD) findAmmo(ident string) int {
	for i, a := range h.ammo {
		if a.ident == ident {
			return i
		}
	}
	return -1
}

func (h *HUD) findCollectable(ident string) *collectable {
	for _, c := range h.collectables {
		if c.ident == ident {
			return c
		}
	}
	return nil
}

// AddAmmoItem registers an ammo item shown with the icon at spritePath.
// Adding an existing ident is a no-op.
func (h *HUD) AddAmmoItem(ident, spritePath string) error {
	if h.findAmmo(ident) >= 0 {
		return nil
	}
	id, err := h.r.LoadSprite(spritePath, 1, iconSize, iconSize, 1, false)
	if err != nil {
		return err
	}
	h.ammo = append(h.ammo, &ammoItem{ident: ident, sprite: id})
	return nil
}

func (h *HUD) UpdateAmmoItem(ident string, cur, max int) {
	if i := h.findAmmo(ident); i >= 0 {
		h.ammo[i].cur, h.ammo[i].max = cur, max
	}
}

// SetAmmoDisplayItem selects the ammo item drawn in the corner. An unknown
// ident hides the ammo display.
func (h *HUD) SetAmmoDisplayItem(ident string) { h.display = h.findAmmo(ident) }

func (h *HUD) AmmoCurrent(ident string) int {
	if i := h.findAmmo(ident); i >= 0 {
		return h.ammo[i].cur
	}
	return 0
}

func (h *HUD) AmmoMax(ident string) int {
	if i := h.findAmmo(ident); i >= 0 {
		return h.ammo[i].max
	}
	return 0
}

// AddCollectable registers a collectable counter. drawAlways shows it even
// while the count is zero.
func (h *HUD) AddCollectable(ident, spritePath string, drawAlways bool) error {
	if h.findCollectable(ident) != nil {
		return nil
	}
	id, err := h.r.LoadSprite(spritePath, 1, iconSize, iconSize, 1, false)
	if err != nil {
		return err
	}
	h.collectables = append(h.collectables, &collectable{ident: ident, sprite: id, drawAlways: drawAlways})
	return nil
}

func (h *HUD) UpdateCollectable(ident string, count int) {
	if c := h.findCollectable(ident); c != nil {
		c.count = count
	}
}

func (h *HUD) CollectableCount(ident string) int {
	if c := h.findCollectable(ident); c != nil {
		return c.count
	}
	return 0
}

// AddMessage shows text for d. A non-positive d uses DefaultMessageDuration.
func (h *HUD) AddMessage(text string, color MessageColor, d time.Duration) {
	if d <= 0 {
		d = DefaultMessageDuration
	}
	h.messages = append(h.messages, message{text: text, color: color, expires: h.now().Add(d)})
	if h.snd != nil && h.hint != 0 {
		h.snd.Play(h.hint, h.snd.Volume(), false)
	}
}

// Messages returns the texts of the live messages, oldest first.
func (h *HUD) Messages() []string {
	out := make([]string, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.text
	}
	return out
}

// Process drops expired messages.
func (h *HUD) Process() {
	now := h.now()
	live := h.messages[:0]
	for _, m := range h.messages {
		if now.Before(m.expires) {
			live = append(live, m)
		}
	}
	h.messages = live
}

// Draw renders the overlay. Messages are drawn even while the HUD is
// disabled.
func (h *HUD) Draw() {
	if h.enabled {
		h.drawHealth()
		h.drawAmmo()
		h.drawCollectables()
	}
	h.drawMessages()
}

func (h *HUD) drawHealth() {
	x := 10
	switch {
	case h.health < 10:
		x += fontW * 2
	case h.health < 100:
		x += fontW
	}
	h.r.DrawString(h.font, strconv.Itoa(h.health), geom.Vec(x, 19), textColor)

	bar := render.RGBA(0, 255, 0, 255)
	switch {
	case h.health < 35:
		bar = render.RGBA(250, 0, 0, 150)
	case h.health < 75:
		bar = render.RGBA(150, 150, 0, 150)
	}
	h.r.DrawBox(geom.Vec(barX, barY), geom.Vec(barW, barH), 1, textColor)
	if w := h.health*barW/100 - barPadding*2; w > 0 {
		h.r.DrawFilledBox(geom.Vec(barX+barPadding, barY+barPadding), geom.Vec(w, barH-barPadding*2-1), bar)
	}
}

func (h *HUD) drawAmmo() {
	if h.display < 0 || h.display >= len(h.ammo) {
		return
	}
	a := h.ammo[h.display]
	cur, total := strconv.Itoa(a.cur), strconv.Itoa(a.max)
	x := h.r.WindowSize().X - iconSize - (len(cur)+1+len(total))*fontW - 20
	y := 5 + iconSize/2 - fontH/2
	h.r.DrawSprite(a.sprite, geom.Vec(x, 5), 0, 0, render.SpriteOptions{})
	h.r.DrawString(h.font, cur, geom.Vec(x+iconSize+5, y), textColor)
	if a.max > 0 {
		dim := render.RGBA(200, 200, 200, 150)
		h.r.DrawString(h.font, "/", geom.Vec(x+iconSize+5+len(cur)*fontW, y), dim)
		h.r.DrawString(h.font, total, geom.Vec(x+iconSize+5+(len(cur)+1)*fontW, y), dim)
	}
}

func (h *HUD) drawCollectables() {
	y := h.r.WindowSize().Y - 43
	x := 0
	for _, c := range h.collectables {
		if !c.drawAlways && c.count == 0 {
			continue
		}
		count := strconv.Itoa(c.count)
		h.r.DrawSprite(c.sprite, geom.Vec(x, y), 0, 0, render.SpriteOptions{})
		h.r.DrawString(h.r.DefaultFont(), count, geom.Vec(x+iconSize, y), textColor)
		x += iconSize + len(count)*fontW + collectableGap
	}
}

func (h *HUD) drawMessages() {
	screen := h.r.WindowSize()
	for i, m := range h.messages {
		w := msgIcon + len(m.text)*msgFontW + 50
		ht := msgIcon + 2
		pos := geom.Vec(screen.X/2-w/2, screen.Y-100-(ht+3)*i)
		h.r.DrawBox(pos, geom.Vec(w, ht), 1, render.RGBA(255, 255, 255, 150))
		h.r.DrawFilledBox(pos.Add(geom.Vec(1, 1)), geom.Vec(w-1, ht-1), m.color.fill())
		h.r.DrawString(h.font, m.text, pos.Add(geom.Vec(55, 10)), textColor)
	}
}

// Release frees every icon sprite.
func (h *HUD) Release() {
	for _, a := range h.ammo {
		h.r.FreeSprite(a.sprite)
	}
	for _, c := range h.collectables {
		h.r.FreeSprite(c.sprite)
	}
	h.ammo, h.collectables, h.display = nil, nil, -1
}
