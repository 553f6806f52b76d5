package config

type Config struct {
	ServerAddr  string
	TokenSecret string
}
