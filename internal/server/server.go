package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relex/internal/queue"
	mid "relex/internal/server/middleware"
	"relex/internal/util"
	"relex/pkg/graph"
	"relex/pkg/logger"
	"relex/pkg/records"
	"relex/pkg/template"

	"github.com/go-playground/validator"
	"github.com/pkoukk/tiktoken-go"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	standardTemplatesPath = "resources/standard_templates.jsonl"
	relationsPath         = "resources/relations.txt"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	graphClient, err := graph.NewClient(graph.NewClientParams{
		URI:      util.GetEnv("NEO4J_URI"),
		User:     util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
	})
	if err != nil {
		logger.Fatal("Failed to connect to graph store", "err", err)
	}
	defer graphClient.Close(context.Background())

	store, err := records.NewStore(ctx, records.NewStoreParams{
		URL:      util.GetEnv("MONGO_URL"),
		Database: util.GetEnvString("MONGO_DATABASE", "ingestion_db"),
	})
	if err != nil {
		logger.Fatal("Failed to connect to document store", "err", err)
	}
	defer store.Close(context.Background())

	templates, err := template.NewExplorer(ctx, template.NewExplorerParams{
		ElasticURL: util.GetEnv("ELASTIC_URL"),
		Resolver:   graph.NewExplorer(graphClient),
	})
	if err != nil {
		logger.Fatal("Failed to connect to template store", "err", err)
	}
	if err := templates.LoadStandardTemplates(ctx, standardTemplatesPath); err != nil {
		logger.Fatal("Failed to ingest standard templates", "err", err)
	}

	tokenizer, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Fatal("Failed to load tokenizer", "err", err)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	queues := []string{queue.ExtractQueue}
	queue.SetupQueues(ch, queues)

	app := &mid.App{
		Queue:     ch,
		Graph:     graphClient,
		Ingestor:  graph.NewIngestor(graphClient),
		Explorer:  graph.NewExplorer(graphClient),
		Records:   store,
		Templates: templates,
		Relations: template.NewRelationList(relationsPath),
		Tokenizer: tokenizer,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
