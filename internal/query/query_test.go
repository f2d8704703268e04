package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginForm = `
{
    body {
        username_field "input#username[name='Username']"
        password_field "input#password[name='Password']"
        login_button "button#submit[data-dtm='policebox_login']"
    }
}
`

func TestParse_Nested(t *testing.T) {
	q, err := Parse(loginForm)
	require.NoError(t, err)

	leaves := q.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, "body.username_field", leaves[0].Path)
	assert.Equal(t, "body", leaves[0].Parent)
	assert.Equal(t, "input#username[name='Username']", leaves[0].Hint)
	assert.Equal(t, "body.login_button", leaves[2].Path)
}

func TestParse_HintlessAndText(t *testing.T) {
	q, err := Parse(`{
		popup_form {
			close_btn
		}
		submit_btn_text "Log in to the Exhibitor Hub"
	}`)
	require.NoError(t, err)

	leaves := q.Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, "popup_form.close_btn", leaves[0].Path)
	assert.Equal(t, "", leaves[0].Hint)
	assert.Equal(t, "submit_btn_text", leaves[1].Path)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"no braces", `username "x"`},
		{"unclosed", `{ body { username }`},
		{"empty query", `{}`},
		{"empty block", `{ body { } }`},
		{"duplicate", `{ a a }`},
		{"trailing", `{ a } b`},
		{"number name", `{ 42 }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			assert.Error(t, err)
		})
	}
}

func TestString_Reparses(t *testing.T) {
	q := MustParse(loginForm)

	again, err := Parse(q.String())
	require.NoError(t, err)
	assert.Equal(t, q.Leaves(), again.Leaves())
}

func TestClassifyHint(t *testing.T) {
	tests := []struct {
		hint string
		want HintKind
	}{
		{"", HintNone},
		{"#username", HintSelector},
		{"a[href='/exhibitor/challenge']", HintSelector},
		{".close", HintSelector},
		{"button", HintSelector},
		{"div > a", HintSelector},
		{"a.hub", HintSelector},
		{"div.modal", HintSelector},
		{"button:first-child", HintSelector},
		{"div.modal a.close", HintSelector},
		{"Log in to the Exhibitor Hub", HintText},
		{"Close", HintText},
		{"Next >", HintText},
		{"Note: read this", HintText},
		{"e.g.", HintText},
		{"Done.", HintText},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHint(tt.hint), tt.hint)
	}
}

func TestKeywordsAndRole(t *testing.T) {
	assert.Equal(t, []string{"close", "dismiss", "×", "cancel"}, Keywords("close_btn"))
	assert.Equal(t, []string{"username", "user", "login id", "email"}, Keywords("username_field"))
	assert.Equal(t, []string{"popup", "modal", "dialog", "overlay"}, Keywords("popup_form"))
	assert.Equal(t, []string{"form"}, Keywords("form"))
	assert.Equal(t, RoleClickable, RoleOf("close_btn", false))
	assert.Equal(t, RoleInput, RoleOf("password_field", false))
	assert.Equal(t, RoleContainer, RoleOf("popup_form", true))
	assert.Equal(t, RoleDocument, RoleOf("body", true))
	assert.Equal(t, RoleAny, RoleOf("banner", false))
}

func TestPlan_ParentsFirst(t *testing.T) {
	steps := plan(MustParse(`{ popup_form { close_btn } }`))

	require.Len(t, steps, 2)
	assert.Equal(t, "popup_form", steps[0].Path)
	assert.Equal(t, RoleContainer, steps[0].Role)
	assert.Equal(t, "popup_form.close_btn", steps[1].Path)
	assert.Equal(t, "popup_form", steps[1].Parent)
	assert.Equal(t, HintNone, steps[1].Kind)
}

func TestResponse(t *testing.T) {
	q := MustParse(`{ submit_btn "a.hub" submit_btn_text "Log in to the Exhibitor Hub" }`)

	resp := NewResponse(q, []Match{
		{Path: "submit_btn", Found: false},
		{Path: "submit_btn_text", Found: false},
	})

	_, ok := resp.Element("submit_btn")
	assert.False(t, ok)
	assert.Equal(t, "Log in to the Exhibitor Hub", resp.Text("submit_btn_text"))
	assert.Equal(t, "", resp.Text("submit_btn"))
	assert.Equal(t, []string{"submit_btn", "submit_btn_text"}, resp.Missing(q))

	_, err := resp.Require("submit_btn")
	assert.ErrorIs(t, err, ErrNotFound)

	resp.merge([]Match{{Path: "submit_btn", Found: true, Text: " Enter hub "}})
	sel, ok := resp.Element("submit_btn")
	assert.True(t, ok)
	assert.Equal(t, `[data-pp-ref="submit_btn"]`, sel)
	assert.Equal(t, "Enter hub", resp.Text("submit_btn"))
}

func TestResponse_Nil(t *testing.T) {
	var resp *Response
	_, ok := resp.Element("x")
	assert.False(t, ok)
	assert.Equal(t, "", resp.Text("x"))
}
