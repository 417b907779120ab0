package service

import (
	"net"
	"strings"
)

const (
	usernameMinLen = 4
	usernameMaxLen = 25
	passwordMinLen = 8
	passwordMaxLen = 25
)

// RegisterInput is the validated shape for Register.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Admin       bool
	Permissions map[string]bool
	RegisterIP  string
}

// Validate checks field constraints and returns a RejectedInputError naming
// every failing field, or nil.
func (in RegisterInput) Validate() error {
	fields := map[string]string{}
	checkUsername(fields, in.Username)
	checkPassword(fields, in.Password)
	checkOptionalIPv4(fields, "register_ip", in.RegisterIP)
	return rejected(fields)
}

// LoginInput is the validated shape for Login.
type LoginInput struct {
	Username string
	Password string
	IP       string
}

func (in LoginInput) Validate() error {
	fields := map[string]string{}
	checkUsername(fields, in.Username)
	checkPassword(fields, in.Password)
	checkOptionalIPv4(fields, "ip", in.IP)
	return rejected(fields)
}

// UpdateInput is the validated shape for Update. Nil fields are untouched.
type UpdateInput struct {
	DisplayName *string
	Password    *string
	Admin       *bool
	Permissions map[string]bool
}

// IsZero reports whether the update changes nothing.
func (in UpdateInput) IsZero() bool {
	return in.DisplayName == nil && in.Password == nil && in.Admin == nil && in.Permissions == nil
}

func (in UpdateInput) Validate() error {
	fields := map[string]string{}
	if in.Password != nil {
		checkPassword(fields, *in.Password)
	}
	if in.DisplayName != nil && strings.TrimSpace(*in.DisplayName) == "" {
		fields["display_name"] = "must not be blank"
	}
	return rejected(fields)
}

func checkUsername(fields map[string]string, username string) {
	u := strings.TrimSpace(username)
	switch {
	case u == "":
		fields["username"] = "is required"
	case len(u) < usernameMinLen || len(u) > usernameMaxLen:
		fields["username"] = "must be 4 to 25 characters"
	case strings.ContainsAny(u, " \t\n"):
		fields["username"] = "must not contain whitespace"
	}
}

func checkPassword(fields map[string]string, password string) {
	switch {
	case password == "":
		fields["password"] = "is required"
	case len(password) < passwordMinLen || len(password) > passwordMaxLen:
		fields["password"] = "must be 8 to 25 characters"
	}
}

func checkOptionalIPv4(fields map[string]string, name, value string) {
	if value == "" {
		return
	}
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil {
		fields[name] = "must be an IPv4 address"
	}
}

// validateUsernameShape checks a lookup username without requiring a password.
func validateUsernameShape(username string) error {
	fields := map[string]string{}
	checkUsername(fields, username)
	return rejected(fields)
}

func rejected(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &RejectedInputError{Fields: fields}
}
