package app

// CheckPassword exposes checkPassword to the external tests.
var CheckPassword = checkPassword
