package scriptapi

import (
	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/scripting"
	"github.com/casualgame/engine/internal/sound"
)

func (a *api) soundFuncs() []fn {
	return []fn{
		{"SoundHandle S_QuerySound(const string&in szSoundFile)", func(args scripting.Args) (scripting.Value, error) {
			if a.Sound == nil {
				return scripting.QWord(0), nil
			}
			id, err := a.Sound.QuerySound(args.String(0))
			if err != nil {
				a.script.Warn("sound load failed", zap.Error(err))
			}
			return scripting.QWord(id), nil
		}},
		{"bool S_PlaySound(SoundHandle hSound, int32 lVolume, bool bLoop = false)", func(args scripting.Args) (scripting.Value, error) {
			if a.Sound == nil || (a.Session != nil && !a.Session.Started()) {
				return scripting.Bool(false), nil
			}
			return scripting.Bool(a.Sound.Play(sound.ID(args.Uint(0)), args.Int(1), args.Bool(2))), nil
		}},
		{"bool S_StopSound(SoundHandle hSound)", func(args scripting.Args) (scripting.Value, error) {
			if a.Sound == nil {
				return scripting.Bool(false), nil
			}
			return scripting.Bool(a.Sound.Stop(sound.ID(args.Uint(0)))), nil
		}},
		{"int S_GetCurrentVolume()", func(scripting.Args) (scripting.Value, error) {
			if a.Sound == nil {
				return scripting.Int(0), nil
			}
			return scripting.Int(a.Sound.Volume()), nil
		}},
	}
}
