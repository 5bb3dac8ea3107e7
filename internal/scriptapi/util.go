package scriptapi

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/cvar"
	"github.com/casualgame/engine/internal/hud"
	"github.com/casualgame/engine/internal/persist"
	"github.com/casualgame/engine/internal/scripting"
)

func (a *api) utilFuncs() []fn {
	phrase := func(args scripting.Args) (scripting.Value, error) {
		if a.Locale == nil {
			return scripting.String(args.String(1)), nil
		}
		return scripting.String(a.Locale.Query(args.String(0), args.String(1))), nil
	}
	return []fn{
		{"int Util_Random(int start, int end)", func(args scripting.Args) (scripting.Value, error) {
			lo, hi := args.Int(0), args.Int(1)
			if hi <= lo {
				return scripting.Int(lo), nil
			}
			return scripting.Int(lo + a.Rand.IntN(hi-lo)), nil
		}},
		{"string Util_StrReplace(const string& in szSource, const string &in szTarget, const string &in szNew)", func(args scripting.Args) (scripting.Value, error) {
			if args.String(1) == "" {
				return scripting.String(args.String(0)), nil
			}
			return scripting.String(strings.ReplaceAll(args.String(0), args.String(1), args.String(2))), nil
		}},
		{"string Props_CreateProperty(const string &in ident, const string &in value)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.String(persist.CreateProperty(args.String(0), args.String(1))), nil
		}},
		{"string Props_ExtractValue(const string &in properties, const string &in ident)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.String(persist.ExtractValue(args.String(0), args.String(1))), nil
		}},
		{"bool Props_SaveToFile(const string &in properties, const string &in fileName)", func(args scripting.Args) (scripting.Value, error) {
			if a.Props == nil {
				return scripting.Bool(false), nil
			}
			ctx, cancel := a.propsCtx()
			defer cancel()
			if err := a.Props.Save(ctx, args.String(1), args.String(0)); err != nil {
				a.script.Warn("props save failed", zap.String("name", args.String(1)), zap.Error(err))
				return scripting.Bool(false), nil
			}
			return scripting.Bool(true), nil
		}},
		{"string Props_GetFromFile(const string &in fileName)", func(args scripting.Args) (scripting.Value, error) {
			if a.Props == nil {
				return scripting.String(""), nil
			}
			ctx, cancel := a.propsCtx()
			defer cancel()
			props, err := a.Props.Load(ctx, args.String(0))
			if err != nil && !errors.Is(err, persist.ErrNotFound) {
				a.script.Warn("props load failed", zap.String("name", args.String(0)), zap.Error(err))
			}
			return scripting.String(props), nil
		}},
		{`string Lang_QueryPhrase(const string &in szIdent, const string &in szDefault = "")`, phrase},
		{`string _(const string &in szIdent, const string &in szDefault = "")`, phrase},
	}
}

func (a *api) cvarFuncs() []fn {
	cv := a.CVars
	return []fn{
		{"CVarHandle CVar_Register(const string &in szName, CVarType eType, const string &in szInitial)", func(args scripting.Args) (scripting.Value, error) {
			h, err := cv.Register(args.String(0), cvar.Type(args.Int(1)), args.String(2))
			if err != nil {
				a.script.Warn("cvar registration failed", zap.Error(err))
			}
			return scripting.QWord(h), nil
		}},
		{"bool CVar_GetBool(const string &in szName, bool fallback)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.Bool(cv.GetBool(args.String(0), args.Bool(1))), nil
		}},
		{"int CVar_GetInt(const string &in szName, int fallback)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.Int(cv.GetInt(args.String(0), args.Int(1))), nil
		}},
		{"float CVar_GetFloat(const string &in szName, float fallback)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.Float(cv.GetFloat(args.String(0), args.Float(1))), nil
		}},
		{"string CVar_GetString(const string &in szName, const string &in fallback)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.String(cv.GetString(args.String(0), args.String(1))), nil
		}},
		{"void CVar_SetBool(const string &in szName, bool value)", func(args scripting.Args) (scripting.Value, error) {
			cv.SetBool(args.String(0), args.Bool(1))
			return nil, nil
		}},
		{"void CVar_SetInt(const string &in szName, int value)", func(args scripting.Args) (scripting.Value, error) {
			cv.SetInt(args.String(0), args.Int(1))
			return nil, nil
		}},
		{"void CVar_SetFloat(const string &in szName, float value)", func(args scripting.Args) (scripting.Value, error) {
			cv.SetFloat(args.String(0), args.Float(1))
			return nil, nil
		}},
		{"void CVar_SetString(const string &in szName, const string &in value)", func(args scripting.Args) (scripting.Value, error) {
			cv.SetString(args.String(0), args.String(1))
			return nil, nil
		}},
		{"bool ExecConfig(const string &in szFile)", func(args scripting.Args) (scripting.Value, error) {
			if err := cv.Exec(filepath.Join(a.Package.Path, args.String(0))); err != nil {
				a.script.Warn("config exec failed", zap.Error(err))
				return scripting.Bool(false), nil
			}
			return scripting.Bool(true), nil
		}},
	}
}

func (a *api) hudFuncs() []fn {
	h := a.HUD
	void := func(do func(args scripting.Args)) scripting.NativeFunc {
		return func(args scripting.Args) (scripting.Value, error) {
			if h != nil {
				do(args)
			}
			return nil, nil
		}
	}
	size := func(get func(args scripting.Args) int) scripting.NativeFunc {
		return func(args scripting.Args) (scripting.Value, error) {
			if h == nil {
				return scripting.QWord(0), nil
			}
			return scripting.QWord(get(args)), nil
		}
	}
	warn := func(err error) {
		if err != nil {
			a.script.Warn("hud icon load failed", zap.Error(err))
		}
	}
	return []fn{
		{"void HUD_SetEnableStatus(bool value)", void(func(args scripting.Args) { h.SetEnabled(args.Bool(0)) })},
		{"bool HUD_IsEnabled()", func(scripting.Args) (scripting.Value, error) {
			return scripting.Bool(h != nil && h.Enabled()), nil
		}},
		{"void HUD_UpdateHealth(size_t value)", void(func(args scripting.Args) { h.UpdateHealth(int(args.Uint(0))) })},
		{"void HUD_AddAmmoItem(const string &in szIdent, const string &in szSprite)", void(func(args scripting.Args) {
			warn(h.AddAmmoItem(args.String(0), args.String(1)))
		})},
		{"void HUD_AddCollectable(const string &in szIdent, const string &in szSprite, bool bDrawAlways)", void(func(args scripting.Args) {
			warn(h.AddCollectable(args.String(0), args.String(1), args.Bool(2)))
		})},
		{"void HUD_UpdateAmmoItem(const string &in szIdent, size_t uiCurAmmo, size_t uiMaxAmmo)", void(func(args scripting.Args) {
			h.UpdateAmmoItem(args.String(0), int(args.Uint(1)), int(args.Uint(2)))
		})},
		{"void HUD_UpdateCollectable(const string &in szIdent, size_t uiCurCount)", void(func(args scripting.Args) {
			h.UpdateCollectable(args.String(0), int(args.Uint(1)))
		})},
		{"size_t HUD_GetAmmoItemCurrent(const string &in szIdent)", size(func(args scripting.Args) int { return h.AmmoCurrent(args.String(0)) })},
		{"size_t HUD_GetAmmoItemMax(const string &in szIdent)", size(func(args scripting.Args) int { return h.AmmoMax(args.String(0)) })},
		{"size_t HUD_GetCollectableCount(const string &in szIdent)", size(func(args scripting.Args) int { return h.CollectableCount(args.String(0)) })},
		{"void HUD_SetAmmoDisplayItem(const string &in szIdent)", void(func(args scripting.Args) { h.SetAmmoDisplayItem(args.String(0)) })},
		{"void HUD_AddMessage(const string &in msg, HudInfoMessageColor color, int duration = 3000)", void(func(args scripting.Args) {
			h.AddMessage(args.String(0), hud.MessageColor(args.Int(1)), time.Duration(args.Int(2))*time.Millisecond)
		})},
	}
}
