package config

// Warning is a deployment problem that does not stop the server.
type Warning struct {
	ID      string
	Message string
}

// Checks reports risky but valid combinations of settings.
func (c *Config) Checks() []Warning {
	var out []Warning
	add := func(id, msg string) { out = append(out, Warning{ID: id, Message: msg}) }

	if c.AllowLegacyPasswords {
		add("honeywords.W001", "allow_legacy_passwords is on: users without a honeyword set log in with a plain hash and bypass detection")
	}
	if c.AuthMode == AuthModeHoneychecker && !c.HoneycheckerFailClosed {
		add("honeywords.W002", "honeychecker_fail_closed is off: logins are accepted whenever the honeychecker is unreachable")
	}
	if c.OnHoneyword == "reset" {
		add("honeywords.W003", "on_honeyword=reset needs an out-of-band reset flow; affected users cannot log in until an administrator clears the flag")
	}
	if c.AuthMode == AuthModeHoneychecker && c.HoneycheckerMode == HoneycheckerLocal {
		add("honeywords.W004", "honeychecker_mode=local keeps the real index in the credential database; a single breach reveals it")
	}
	if c.SecretKey == DefaultSecretKey {
		add("honeywords.W005", "secret_key is the built-in default")
	}
	if c.PasswordHasher == "bcrypt" && c.BcryptCost < 10 {
		add("honeywords.W006", "bcrypt_cost below 10 makes offline cracking of the honeyword set cheap")
	}
	if c.DatabaseDSN == MemoryDSN {
		add("honeywords.W007", "database_dsn=memory: all users and credential sets are lost on restart")
	}
	return out
}
