package email

// emailTemplates holds the HTML bodies for every transactional email. They
// share a minimal inline-styled layout so they render the same across
// clients.
const emailTemplates = `
{{define "layout_top"}}<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f4f7;font-family:Helvetica,Arial,sans-serif;">
<table width="100%" cellpadding="0" cellspacing="0" style="background:#f4f4f7;padding:24px 0;">
<tr><td align="center">
<table width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
<tr><td style="font-size:20px;font-weight:bold;color:#111827;padding-bottom:16px;">FakeTect</td></tr>
{{end}}

{{define "layout_bottom"}}
<tr><td style="font-size:12px;color:#9ca3af;padding-top:24px;">&copy; {{.Year}} FakeTect. All rights reserved.</td></tr>
</table>
</td></tr>
</table>
</body>
</html>{{end}}

{{define "verification"}}{{template "layout_top" .}}
<tr><td style="font-size:15px;color:#374151;line-height:1.6;">
<p>Hi {{.Name}},</p>
<p>Welcome to FakeTect! Please verify your email address:</p>
<p><a href="{{.VerifyURL}}" style="display:inline-block;background:#4f46e5;color:#ffffff;padding:10px 20px;border-radius:6px;text-decoration:none;">Verify email</a></p>
<p>This link expires in 24 hours. If you didn't create an account, you can ignore this email.</p>
</td></tr>
{{template "layout_bottom" .}}{{end}}

{{define "password_reset"}}{{template "layout_top" .}}
<tr><td style="font-size:15px;color:#374151;line-height:1.6;">
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password:</p>
<p><a href="{{.ResetURL}}" style="display:inline-block;background:#4f46e5;color:#ffffff;padding:10px 20px;border-radius:6px;text-decoration:none;">Reset password</a></p>
<p>This link expires in 1 hour. If you didn't request a reset, your password will not change.</p>
</td></tr>
{{template "layout_bottom" .}}{{end}}

{{define "welcome"}}{{template "layout_top" .}}
<tr><td style="font-size:15px;color:#374151;line-height:1.6;">
<p>Hi {{.Name}},</p>
<p>Your account is ready. Upload an image, video, or text to get your first AI-content verdict.</p>
<p><a href="{{.AppURL}}" style="display:inline-block;background:#4f46e5;color:#ffffff;padding:10px 20px;border-radius:6px;text-decoration:none;">Open FakeTect</a></p>
</td></tr>
{{template "layout_bottom" .}}{{end}}

{{define "export_ready"}}{{template "layout_top" .}}
<tr><td style="font-size:15px;color:#374151;line-height:1.6;">
<p>Hi {{.Name}},</p>
<p>Your data export is ready:</p>
<p><a href="{{.DownloadURL}}" style="display:inline-block;background:#4f46e5;color:#ffffff;padding:10px 20px;border-radius:6px;text-decoration:none;">Download export</a></p>
<p>The link expires in 7 days.</p>
</td></tr>
{{template "layout_bottom" .}}{{end}}
`
