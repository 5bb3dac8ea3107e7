package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorResolver(name string) (TypeSpec, bool) {
	switch name {
	case "Vector", "IScriptedEntity":
		return TypeSpec{Name: name, Tag: TagObject}, true
	}
	return TypeSpec{}, false
}

func TestParseSignature(t *testing.T) {
	sig, err := parseSignature("void S_PlaySound(size_t hSound, int32 lVolume, bool bLoop = false)", vectorResolver)
	require.NoError(t, err)
	assert.Equal(t, "S_PlaySound", sig.Name)
	assert.Equal(t, TagVoid, sig.Return.Tag)
	require.Len(t, sig.Params, 3)
	assert.Equal(t, TagQWord, sig.Params[0].Type.Tag)
	assert.True(t, sig.Params[1].Type.Signed)
	assert.True(t, sig.Params[2].Type.Bool)
	assert.Equal(t, "false", sig.Params[2].Default)
	assert.Equal(t, 2, sig.Required())
}

func TestParseSignatureReferencesAndHandles(t *testing.T) {
	sig, err := parseSignature("bool Ent_SpawnEntity(const string &in, IScriptedEntity @obj, const Vector& in)", vectorResolver)
	require.NoError(t, err)
	require.Len(t, sig.Params, 3)
	assert.True(t, sig.Params[0].Type.Const)
	assert.True(t, sig.Params[0].Type.InRef)
	assert.Equal(t, TagString, sig.Params[0].Type.Tag)
	assert.True(t, sig.Params[1].Type.Handle)
	assert.Equal(t, "obj", sig.Params[1].Name)
	assert.Equal(t, TagObject, sig.Params[2].Type.Tag)
	assert.Equal(t, "Ent_SpawnEntity(string,IScriptedEntity@,Vector)", sig.Key())

	sig, err = parseSignature("Vector& GetPosition()", vectorResolver)
	require.NoError(t, err)
	assert.Equal(t, TagObject, sig.Return.Tag)
	assert.Empty(t, sig.Params)
}

func TestParseSignatureRejects(t *testing.T) {
	for _, decl := range []string{
		"void NoParens",
		"Foo()",
		"void F(Unknown u)",
		"void F(int &out v)",
		"void F(int a = 1, int b)",
		"void F(void v)",
	} {
		_, err := parseSignature(decl, vectorResolver)
		assert.Error(t, err, decl)
	}
}
