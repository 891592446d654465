package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrNoResult reports an expected miss: a named entity or relationship that
// does not exist in the graph. Callers surface it as an empty result, not a
// failure.
var ErrNoResult = errors.New("graph: no matching result")

// ErrGraphNotFound reports addressing a named graph scope that has not been
// created.
var ErrGraphNotFound = errors.New("graph: named graph does not exist")

// ErrInvalidGraphName reports a graph name the store cannot accept.
var ErrInvalidGraphName = errors.New("graph: invalid graph name")

// graphNamePattern follows the store's database naming rules. Names are
// interpolated into admin statements, so nothing outside this set passes.
var graphNamePattern = regexp.MustCompile(`^[a-z][a-z0-9.-]*$`)

const (
	defaultTimeoutSec  = 10
	defaultMaxPoolSize = 50
)

// cypherRunner is the narrow store capability the ingestor and resolver
// depend on: run one statement against a graph scope and get plain row maps
// back. Satisfied by *Client and by test fakes.
type cypherRunner interface {
	Read(ctx context.Context, scope, cypher string, params map[string]any) ([]map[string]any, error)
	Write(ctx context.Context, scope, cypher string, params map[string]any) ([]map[string]any, error)
	GraphExists(ctx context.Context, scope string) (bool, error)
}

// Client wraps the neo4j driver. A named graph scope maps to a neo4j
// database; the empty scope routes to the server's default database.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewClientParams contains configuration for creating a Client.
type NewClientParams struct {
	URI      string
	User     string
	Password string
	Database string

	TimeoutSec  int
	MaxPoolSize int
}

// NewClient connects to the graph store and verifies connectivity.
func NewClient(params NewClientParams) (*Client, error) {
	timeoutSec := params.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = defaultTimeoutSec
	}
	maxPool := params.MaxPoolSize
	if maxPool <= 0 {
		maxPool = defaultMaxPoolSize
	}

	auth := neo4j.BasicAuth(params.User, params.Password, "")
	driver, err := neo4j.NewDriverWithContext(params.URI, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &Client{
		driver:   driver,
		database: params.Database,
	}, nil
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func (c *Client) databaseFor(scope string) string {
	if scope == "" {
		return c.database
	}
	return scope
}

// Read runs one statement in a read transaction against the given scope.
func (c *Client) Read(ctx context.Context, scope, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.run(ctx, scope, neo4j.AccessModeRead, cypher, params)
}

// Write runs one statement in a single write transaction against the given
// scope.
func (c *Client) Write(ctx context.Context, scope, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.run(ctx, scope, neo4j.AccessModeWrite, cypher, params)
}

func (c *Client) run(ctx context.Context, scope string, mode neo4j.AccessMode, cypher string, params map[string]any) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.databaseFor(scope),
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, record := range records {
			rows = append(rows, record.AsMap())
		}
		return rows, nil
	}

	var (
		out any
		err error
	)
	if mode == neo4j.AccessModeRead {
		out, err = session.ExecuteRead(ctx, work)
	} else {
		out, err = session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		return nil, err
	}

	return out.([]map[string]any), nil
}

// CreateGraph creates a named graph scope as a dedicated database.
// Idempotent; creating an existing scope is a no-op.
func (c *Client) CreateGraph(ctx context.Context, scope string) error {
	if !graphNamePattern.MatchString(scope) {
		return ErrInvalidGraphName
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: "system",
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf("CREATE DATABASE %s IF NOT EXISTS", scope), nil)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("graph: create graph %s: %w", scope, err)
	}

	return nil
}

// GraphExists reports whether a named graph scope exists on the server. The
// empty scope is the default graph and always exists.
func (c *Client) GraphExists(ctx context.Context, scope string) (bool, error) {
	if scope == "" {
		return true, nil
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: "system",
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "SHOW DATABASES YIELD name WHERE name = $name RETURN name", map[string]any{"name": scope})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records) > 0, nil
	})
	if err != nil {
		return false, err
	}

	return out.(bool), nil
}
