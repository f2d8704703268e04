package login

import "github.com/ibeckermayer/portalpilot/internal/query"

// Portal DOM selectors and queries.
// These are isolated here because the portal changes its markup without notice.
// Update these when the login breaks.

const (
	// Login page indicators
	UsernameInput = "#username"
	PasswordInput = "#password"

	// Literal fallbacks for the submit step
	FallbackUsername = "#username[name='Username']"
	FallbackPassword = "#password[name='Password']"
	FallbackSubmit   = "button#submit[data-dtm='policebox_login']"
)

// Query leaf paths
const (
	PathUsername   = "body.username_field"
	PathPassword   = "body.password_field"
	PathLogin      = "body.login_button"
	PathPopupClose = "popup_form.close_btn"
	PathHubButton  = "submit_btn"
	PathHubText    = "submit_btn_text"
)

// LoginFormQuery locates the three controls of the login form.
var LoginFormQuery = query.MustParse(`
{
	body {
		username_field "input#username[name='Username'][class='form-control'][placeholder='Username']"
		password_field "input#password[name='Password'][class='form-control'][type='password'][placeholder='Password']"
		login_button "button#submit[data-dtm='policebox_login'][class='btn btn-primary login-button']"
	}
}`)

// PopupQuery locates the close control of the post-login announcement popup.
var PopupQuery = query.MustParse(`
{
	popup_form {
		close_btn
	}
}`)

// HubQuery locates the link into the exhibitor hub, with its label as a text fallback.
var HubQuery = query.MustParse(`
{
	submit_btn "a[href='/exhibitor/challenge'][class='_button_1p0fh_8 _--primary_1p0fh_136 _--theme-default_1p0fh_80']"
	submit_btn_text "Log in to the Exhibitor Hub"
}`)
