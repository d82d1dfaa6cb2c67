package templates

// LinkData is shared by scenarios that send the user to the web client.
type LinkData struct {
	AppName  string
	Link     string
	ValidFor string
}

// VerifyEmail is the typed handle for the user.verify_email template.
var VerifyEmail = Expect[LinkData]("user.verify_email")

// PasswordReset is the typed handle for the user.password_reset template.
var PasswordReset = Expect[LinkData]("user.password_reset")

// CodeData holds a one-time numeric code.
type CodeData struct {
	AppName  string
	Code     string
	ValidFor string
}

// SMSCode is the typed handle for the user.sms_code template.
var SMSCode = Expect[CodeData]("user.sms_code")
