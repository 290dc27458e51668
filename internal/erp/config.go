// Package erp provides the authenticated client for the ERP Service Layer.
package erp

import (
	"time"

	"fuelbridge/internal/core/apperror"
)

// Config holds ERP connection settings. Loaded once at startup from the
// environment and immutable for the process lifetime.
type Config struct {
	// BaseURL is the Service Layer root, e.g. https://erp.local:50000/b1s/v1
	BaseURL string

	// CompanyDB is the company database to log into.
	CompanyDB string

	// Username and Password are the integration user credentials.
	Username string
	Password string

	// Timeout bounds each remote call. The ERP advertises a 30 minute
	// session lifetime; individual calls must finish well within it.
	Timeout time.Duration

	// ExpiredStatus is the HTTP status the ERP uses to signal an expired
	// session, distinct from generic errors.
	ExpiredStatus int

	// InsecureSkipVerify disables TLS verification. The Service Layer
	// commonly runs with a self-signed certificate on intranets.
	InsecureSkipVerify bool
}

// DefaultConfig returns production-safe defaults for the given endpoint.
func DefaultConfig(baseURL, companyDB, username, password string) Config {
	return Config{
		BaseURL:       baseURL,
		CompanyDB:     companyDB,
		Username:      username,
		Password:      password,
		Timeout:       30 * time.Second,
		ExpiredStatus: 301,
	}
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return apperror.NewValidation("erp base url is required").WithDetail("field", "BaseURL")
	}
	if c.CompanyDB == "" {
		return apperror.NewValidation("erp company db is required").WithDetail("field", "CompanyDB")
	}
	if c.Username == "" {
		return apperror.NewValidation("erp username is required").WithDetail("field", "Username")
	}
	if c.Password == "" {
		return apperror.NewValidation("erp password is required").WithDetail("field", "Password")
	}
	return nil
}
