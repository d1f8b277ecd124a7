package handlers

import (
	"html/template"
)

// Template variables for all handlers
var (
	errorTmpl    *template.Template
	notFoundTmpl *template.Template
	indexTmpl    *template.Template
	loginTmpl    *template.Template
	verifyTmpl   *template.Template
	setupTmpl    *template.Template
)

func init() {
	errorTmpl = template.Must(template.New("error").Parse(`<html><body><h1>Something went wrong</h1><p>{{.errorTitle}}</p><p>{{.errorDescription}}</p></body></html>`))
	notFoundTmpl = template.Must(template.New("notfound").Parse(`<html><body><h1>Page not found</h1></body></html>`))

	indexTmpl = template.Must(template.New("index").Parse(`
<!DOCTYPE html>
<html>
<head><title>Admin</title><meta charset="utf-8"></head>
<body>
    <h1>Welcome {{.name}}</h1>
    <p><a href="/s/logout">Sign out</a></p>
    <h2>Recent sign in activity</h2>
    <table>
        <tr><th>When</th><th>From</th><th>Outcome</th></tr>
        {{range .attempts}}
        <tr><td>{{.CreatedAt}}</td><td>{{.IPAddress}}</td><td>{{if .Success}}ok{{else}}failed{{end}}</td></tr>
        {{end}}
    </table>
</body>
</html>`))

	loginTmpl = template.Must(template.New("login").Parse(`
<!DOCTYPE html>
<html>
<head>
    <title>Sign in</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
    <div class="container">
        <h1>Sign in</h1>
        {{if .error}}
            <div class="error">{{.error}}</div>
        {{end}}
        <form method="POST" action="/s/login/post">
            {{.csrfField}}
            <div class="form-group">
                <label for="email">Email:</label>
                <input type="email" id="email" name="email" required>
            </div>
            <div class="form-group">
                <label for="password">Password:</label>
                <input type="password" id="password" name="password" required>
            </div>
            <button type="submit">Sign in</button>
        </form>
    </div>
</body>
</html>`))

	verifyTmpl = template.Must(template.New("verify").Parse(`
<!DOCTYPE html>
<html>
<head><title>Verify sign in</title><meta charset="utf-8"></head>
<body>
    <div class="container">
        <h1>Verify it's you</h1>
        {{if .error}}
            <div class="error">{{.error}}</div>
        {{end}}
        <form method="POST" action="/s/login/verify/post">
            {{.csrfField}}
            {{if .needsEmailCode}}
            <div class="form-group">
                <label for="emailCode">Code from your email:</label>
                <input type="text" id="emailCode" name="emailCode" inputmode="numeric" autocomplete="one-time-code">
            </div>
            {{end}}
            {{if .needsTotpCode}}
            <div class="form-group">
                <label for="totpCode">Code from your authenticator app:</label>
                <input type="text" id="totpCode" name="totpCode" inputmode="numeric" autocomplete="one-time-code">
            </div>
            {{end}}
            <div class="form-group">
                <label><input type="checkbox" name="trustDevice" value="1"> Trust this device for 7 days</label>
            </div>
            <button type="submit">Verify</button>
        </form>
        {{if .needsEmailCode}}
        <form method="POST" action="/s/login/verify/resend">
            {{.csrfField}}
            <button type="submit">Resend email code</button>
        </form>
        {{end}}
    </div>
</body>
</html>`))

	setupTmpl = template.Must(template.New("setup").Parse(`
<!DOCTYPE html>
<html>
<head><title>Set up two factor</title><meta charset="utf-8"></head>
<body>
    <div class="container">
        <h1>Protect your account</h1>
        {{if .error}}
            <div class="error">{{.error}}</div>
        {{end}}
        {{if not .challenge}}
        <form method="POST" action="/s/twofa/setup/post">
            {{.csrfField}}
            <input type="hidden" name="action" value="begin">
            <div class="form-group">
                <label><input type="radio" name="method" value="email" checked> Email me a code</label>
                <label><input type="radio" name="method" value="totp"> Authenticator app</label>
                <label><input type="radio" name="method" value="both"> Both</label>
            </div>
            <button type="submit">Continue</button>
        </form>
        {{else}}
        {{if .secret}}
        <p>Add this key to your authenticator app:</p>
        <p><code>{{.secret}}</code></p>
        <p><a href="{{.provisioningURL}}">Or open it directly</a></p>
        {{end}}
        <form method="POST" action="/s/twofa/setup/post">
            {{.csrfField}}
            <input type="hidden" name="action" value="confirm">
            <div class="form-group">
                <label for="code">Enter a code to confirm:</label>
                <input type="text" id="code" name="code" inputmode="numeric" autocomplete="one-time-code" required>
            </div>
            <button type="submit">Activate</button>
        </form>
        {{end}}
    </div>
</body>
</html>`))
}
