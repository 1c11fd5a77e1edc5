package email

import "fmt"

// VerificationSubject and friends are the outbound messages of the
// registration flow. Links point at the frontend, which forwards the token
// to the verify endpoint.

const VerificationSubject = "Verify Your Email - AltarMaker"

func VerificationBody(appURL, token string) string {
	link := fmt.Sprintf("%s/verify-email?token=%s", appURL, token)
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Welcome to AltarMaker!</h2>
<p>Please click the button below to verify your email address:</p>
<a href="%s" style="display: inline-block; padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0;">Verify Email</a>
<p>Or copy and paste this link into your browser:</p>
<p style="word-break: break-all;">%s</p>
<p>This link expires in 15 minutes.</p>
<p>If you did not create an account with us, please ignore this email.</p>
<hr>
<p style="color: #666; font-size: 12px;">This is an automated message, please do not reply directly to this email.</p>
</div>`, link, link)
}

const WelcomeSubject = "Welcome to AltarMaker!"

func WelcomeBody(appURL, username string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333;">
<h1 style="color: #4A90E2;">Welcome to <strong>AltarMaker</strong>, %s!</h1>
<p>Your email has been successfully verified, and we're thrilled to have you join our creative community.</p>
<p>With AltarMaker, you can:</p>
<ul style="line-height: 1.8;">
<li><strong>Design &amp; customize</strong> altars with frames, stickers, and text.</li>
<li><strong>Drag, resize, and personalize</strong> every element with ease.</li>
<li><strong>Save &amp; share</strong> your creations anytime, anywhere.</li>
</ul>
<div style="text-align: center; margin: 30px 0;">
<a href="%s" style="background-color: #4CAF50; color: white; padding: 12px 30px; text-decoration: none; border-radius: 4px; font-size: 16px; font-weight: bold; display: inline-block;">Start Creating</a>
</div>
<p style="margin-top: 30px;">Happy Creating,<br>&mdash; <em>The AltarMaker Team</em></p>
</div>`, username, appURL)
}
