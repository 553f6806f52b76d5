package config

import "time"

type Config struct {
	IssuerAddr        string
	IssuerSandboxAddr string
	SallaAddr         string
	RedisAddr         string
	ClientTimeout     time.Duration
	ThrottleEvery     int
	ThrottlePause     time.Duration
	RetryDelay        time.Duration
}
