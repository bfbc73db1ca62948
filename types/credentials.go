package types

// Credentials holds the API key pair issued by the platform console.
// SecretKey participates only in request signing and is never sent on
// the wire.
type Credentials struct {
	AccessKey string `yaml:"access_key" json:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" json:"-" env:"SECRET_KEY"`
}

// Valid reports whether both halves of the key pair are present.
func (c Credentials) Valid() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}
