package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rabbitmq/amqp091-go"

	"relex/pkg/graph"
	"relex/pkg/records"
	"relex/pkg/template"
)

// App bundles the shared clients every handler needs.
type App struct {
	Queue     *amqp091.Channel
	Graph     *graph.Client
	Ingestor  *graph.Ingestor
	Explorer  *graph.Explorer
	Records   *records.Store
	Templates *template.Explorer
	Relations *template.RelationList
	Tokenizer *tiktoken.Tiktoken
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
