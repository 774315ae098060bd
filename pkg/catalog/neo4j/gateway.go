package neo4j

import (
	"context"
	"fmt"
	"strings"

	"welding-recommender-be/pkg/catalog"
	"welding-recommender-be/pkg/guide"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const defaultLimit = 25

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Gateway is the Neo4j-backed product catalog. Products are nodes labeled
// Product with a category property; compatibility is the COMPATIBLE_WITH
// relationship between them. The gateway is read-only.
type Gateway struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ catalog.Gateway = (*Gateway)(nil)

func NewGateway(ctx context.Context, cfg Config) (*Gateway, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Gateway{driver: driver, database: cfg.Database}, nil
}

func (g *Gateway) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Search executes one catalog query. The validated flag on the outcome
// reflects whether the query filtered by compatibility, never whether it
// found anything. A compatibility search without parent ids returns an
// empty validated outcome: nothing compatible exists to find yet.
func (g *Gateway) Search(ctx context.Context, req catalog.SearchRequest) (*guide.SearchOutcome, error) {
	if req.RequiresCompatibility && len(req.ParentIDs) == 0 {
		return &guide.SearchOutcome{CompatibilityValidated: true}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query, params := buildQuery(req, limit)

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session,
		func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
			result, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			return result.Collect(ctx)
		})
	if err != nil {
		return nil, fmt.Errorf("neo4j search for %s: %w", req.Category, err)
	}

	items := make([]guide.Product, 0, len(records))
	for _, rec := range records {
		node, ok := rec.Get("p")
		if !ok {
			continue
		}
		n, ok := node.(neo4j.Node)
		if !ok {
			continue
		}
		items = append(items, nodeToProduct(n, req.Category))
	}

	return &guide.SearchOutcome{
		Items:                  items,
		CompatibilityValidated: req.RequiresCompatibility,
	}, nil
}

// buildQuery assembles the cypher for a category search. A compatibility
// search requires the candidate to be related to ALL parent ids, not just
// one; matching against a set of parents is the normal multi-parent case.
func buildQuery(req catalog.SearchRequest, limit int) (string, map[string]any) {
	var sb strings.Builder
	params := map[string]any{
		"category": string(req.Category),
		"limit":    limit,
	}

	sb.WriteString("MATCH (p:Product {category: $category})\n")

	var conditions []string
	if req.RequiresCompatibility {
		params["parents"] = req.ParentIDs
		conditions = append(conditions,
			"all(parent IN $parents WHERE EXISTS { MATCH (p)-[:COMPATIBLE_WITH]-(q:Product) WHERE q.id = parent })")
	}
	if name, ok := req.Spec["name"]; ok && name != "" {
		params["name"] = name
		conditions = append(conditions, "toLower(p.name) CONTAINS toLower($name)")
	}
	if model, ok := req.Spec["model"]; ok && model != "" {
		params["model"] = model
		conditions = append(conditions, "toLower(coalesce(p.model, '')) CONTAINS toLower($model)")
	}

	if len(conditions) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(conditions, "\n  AND "))
		sb.WriteString("\n")
	}

	sb.WriteString("RETURN p\n")
	sb.WriteString("ORDER BY coalesce(p.rank, 0) DESC, p.name\n")
	sb.WriteString("LIMIT $limit")

	return sb.String(), params
}

func nodeToProduct(n neo4j.Node, category guide.Category) guide.Product {
	p := guide.Product{
		Category:   category,
		Attributes: make(map[string]string),
	}
	for key, value := range n.Props {
		s := fmt.Sprintf("%v", value)
		switch key {
		case "id":
			p.ID = s
		case "name":
			p.Name = s
		case "rank":
			if f, ok := value.(float64); ok {
				p.Score = f
			}
		default:
			p.Attributes[key] = s
		}
	}
	return p
}
