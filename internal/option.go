package internal

import "github.com/starford/raido/internal/engine"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	events engine.EventFunc
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEvents sets a callback receiving engine progress events.
func WithEvents(fn engine.EventFunc) Option {
	return func(a *application) {
		a.events = fn
	}
}
