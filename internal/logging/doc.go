// Package logging builds the slog loggers used across Downspout.
//
// It offers a console handler with compact key=value lines for interactive
// use and a JSON handler for machine consumption, plus attr helpers so call
// sites stay terse. Components derive child loggers via WithComponent.
package logging
