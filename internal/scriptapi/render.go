package scriptapi

import (
	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/render"
	"github.com/casualgame/engine/internal/scripting"
)

// camera centres the view on the player. ok is false without a player.
func (a *api) camera() (render.Camera, bool) {
	pos, ok := a.Entities.PlayerPosition()
	return render.Camera{Focus: pos, Screen: a.Renderer.WindowSize()}, ok
}

func (a *api) renderFuncs() []fn {
	r := a.Renderer
	ok := func(b bool) (scripting.Value, error) { return scripting.Bool(b), nil }
	return []fn{
		{"FontHandle R_LoadFont(const string& in, uint8 ucFontSizeW, uint8 ucFontSizeH)", func(args scripting.Args) (scripting.Value, error) {
			id, err := r.LoadFont(args.String(0), int(args.Uint(1)), int(args.Uint(2)))
			if err != nil {
				a.script.Warn("font load failed", zap.Error(err))
			}
			return scripting.QWord(id), nil
		}},
		{"FontHandle R_GetDefaultFont()", func(scripting.Args) (scripting.Value, error) {
			return scripting.QWord(r.DefaultFont()), nil
		}},
		{"SpriteHandle R_LoadSprite(const string& in szFile, int iFrameCount, int iFrameWidth, int iFrameHeight, int iFramesPerLine, bool bForceCustomSize)", func(args scripting.Args) (scripting.Value, error) {
			id, err := r.LoadSprite(args.String(0), args.Int(1), args.Int(2), args.Int(3), args.Int(4), args.Bool(5))
			if err != nil {
				a.script.Warn("sprite load failed", zap.Error(err))
			}
			return scripting.QWord(id), nil
		}},
		{"bool R_FreeSprite(SpriteHandle hSprite)", func(args scripting.Args) (scripting.Value, error) {
			id := geom.SpriteID(args.Uint(0))
			if id == 0 {
				return ok(false)
			}
			r.FreeSprite(id)
			return ok(true)
		}},
		{"bool R_DrawBox(const Vector& in pos, const Vector&in size, int iThickness, const Color&in color)", func(args scripting.Args) (scripting.Value, error) {
			return ok(r.DrawBox(vec(args, 0), vec(args, 1), args.Int(2), color(args, 3)))
		}},
		{"bool R_DrawFilledBox(const Vector&in pos, const Vector&in size, const Color&in color)", func(args scripting.Args) (scripting.Value, error) {
			return ok(r.DrawFilledBox(vec(args, 0), vec(args, 1), color(args, 2)))
		}},
		{"bool R_DrawLine(const Vector&in start, const Vector&in end, const Color&in color)", func(args scripting.Args) (scripting.Value, error) {
			return ok(r.DrawLine(vec(args, 0), vec(args, 1), color(args, 2)))
		}},
		{"bool R_DrawSprite(const SpriteHandle hSprite, const Vector&in pos, int iFrame, float fRotation, const Vector &in vRotPos, float fScale1, float fScale2, bool bUseCustomColorMask, const Color&in color)", func(args scripting.Args) (scripting.Value, error) {
			opts := render.SpriteOptions{
				RotPos:  vec(args, 4),
				ScaleX:  args.Float(5),
				ScaleY:  args.Float(6),
				UseMask: args.Bool(7),
				Mask:    color(args, 8),
			}
			return ok(r.DrawSprite(geom.SpriteID(args.Uint(0)), vec(args, 1), args.Int(2), args.Float(3), opts))
		}},
		{"bool R_DrawString(const FontHandle font, const string&in szText, const Vector&in pos, const Color&in color)", func(args scripting.Args) (scripting.Value, error) {
			return ok(r.DrawString(render.FontID(args.Uint(0)), args.String(1), vec(args, 2), color(args, 3)))
		}},
		{"bool R_ShouldDraw(const Vector &in vMyPos, const Vector &in vMySize)", func(args scripting.Args) (scripting.Value, error) {
			cam, found := a.camera()
			return ok(found && cam.Visible(vec(args, 0), vec(args, 1)))
		}},
		{"Vector R_GetDrawingPosition(const Vector &in vMyPos, const Vector &in vMySize)", func(args scripting.Args) (scripting.Value, error) {
			cam, _ := a.camera()
			return a.wrapVector(cam.ScreenPos(vec(args, 0), vec(args, 1)))
		}},
		{"int Wnd_GetWindowCenterX()", func(scripting.Args) (scripting.Value, error) {
			return scripting.Int(r.WindowSize().X / 2), nil
		}},
		{"int Wnd_GetWindowCenterY()", func(scripting.Args) (scripting.Value, error) {
			return scripting.Int(r.WindowSize().Y / 2), nil
		}},
	}
}
