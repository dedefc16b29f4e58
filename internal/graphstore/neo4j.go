package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

const (
	listFacultyCypher = `
		MATCH (f:FACULTY)
		RETURN f.name AS name
		ORDER BY name`

	facultyProfileCypher = `
		MATCH (f:FACULTY {name: $name})
		RETURN f.name AS name, f.position AS position, f.photoUrl AS photoUrl
		LIMIT 1`

	topCoauthorsCypher = `
		MATCH (f:FACULTY {name: $name})-[:PUBLISH]->(p:PUBLICATION)<-[:PUBLISH]-(co:FACULTY)
		WHERE co.name <> f.name
		RETURN co.name AS coauthor, count(DISTINCT p) AS jointCount
		ORDER BY jointCount DESC, coauthor ASC
		LIMIT $limit`

	pruneFacultyCypher = `
		MATCH (f:FACULTY)
		WHERE NOT f.name IN $names
		DETACH DELETE f`

	prunePublicationCypher = `
		MATCH (p:PUBLICATION)
		WHERE NOT p.id IN $ids
		DETACH DELETE p`

	dropPublishCypher = `
		MATCH (:FACULTY)-[r:PUBLISH]->(:PUBLICATION)
		DELETE r`

	mergeFacultyCypher = `
		UNWIND $rows AS row
		MERGE (f:FACULTY {name: row.name})
		SET f.position = row.position, f.photoUrl = row.photoUrl`

	mergePublicationCypher = `
		UNWIND $rows AS row
		MERGE (p:PUBLICATION {id: row.id})
		SET p.title = row.title, p.year = row.year
		WITH p, row
		UNWIND row.authors AS author
		MATCH (f:FACULTY {name: author})
		MERGE (f)-[:PUBLISH]->(p)`
)

// Neo4j is the production graph backend.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ Backend = (*Neo4j)(nil)

// NewNeo4j creates a driver for cfg without contacting the server.
func NewNeo4j(cfg storecfg.Config) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.NetworkURI("bolt"), neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graphstore: create neo4j driver: %w", err)
	}
	return &Neo4j{driver: driver, database: cfg.Database}, nil
}

// OpenNeo4j creates a driver for cfg and verifies connectivity.
func OpenNeo4j(ctx context.Context, cfg storecfg.Config) (*Neo4j, error) {
	s, err := NewNeo4j(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		_ = s.driver.Close(ctx)
		return nil, apperr.E(Name, "open", apperr.ErrUnavailable, err)
	}
	return s, nil
}

func (s *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// Close releases every pooled connection.
func (s *Neo4j) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4j) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return apperr.E(Name, "ping", apperr.ErrUnavailable, err)
	}
	return nil
}

func (s *Neo4j) ListFacultyNames(ctx context.Context) ([]string, error) {
	records, err := s.read(ctx, listFacultyCypher, nil)
	if err != nil {
		return nil, fail(ctx, "list_faculty_names", err)
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, stringFromRecord(rec, "name"))
	}
	return out, nil
}

func (s *Neo4j) FacultyProfile(ctx context.Context, name string) (*models.FacultyProfile, error) {
	records, err := s.read(ctx, facultyProfileCypher, map[string]any{"name": name})
	if err != nil {
		return nil, fail(ctx, "faculty_profile", err, slog.String("faculty", name))
	}
	if len(records) == 0 {
		return nil, nil
	}
	return profileFromRecord(records[0]), nil
}

func (s *Neo4j) TopCoauthors(ctx context.Context, name string, limit int) ([]models.Coauthor, error) {
	if err := checkLimit("top_coauthors", limit); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, topCoauthorsCypher, map[string]any{"name": name, "limit": int64(limit)})
	if err != nil {
		return nil, fail(ctx, "top_coauthors", err, slog.String("faculty", name))
	}
	return coauthorsFromRecords(records), nil
}

// Load makes the graph match the dataset in one write transaction: nodes
// missing from it are detached and deleted, every PUBLISH edge is rebuilt.
func (s *Neo4j) Load(ctx context.Context, ds *models.Dataset) error {
	names := make([]any, 0, len(ds.Faculty))
	faculty := make([]map[string]any, 0, len(ds.Faculty))
	for _, f := range ds.Faculty {
		names = append(names, f.Name)
		faculty = append(faculty, map[string]any{
			"name":     f.Name,
			"position": f.Position,
			"photoUrl": f.PhotoURL,
		})
	}

	byID := ds.FacultyByID()
	ids := make([]any, 0, len(ds.Publications))
	pubs := make([]map[string]any, 0, len(ds.Publications))
	for _, p := range ds.Publications {
		ids = append(ids, strconv.FormatInt(p.ID, 10))
		authors := make([]any, 0, len(p.Authors))
		for _, id := range p.Authors {
			f, ok := byID[id]
			if !ok {
				return fmt.Errorf("graphstore: publication %d: unknown author id %d", p.ID, id)
			}
			authors = append(authors, f.Name)
		}
		pubs = append(pubs, map[string]any{
			"id":      strconv.FormatInt(p.ID, 10),
			"title":   p.Title,
			"year":    int64(p.Year),
			"authors": authors,
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			cypher string
			params map[string]any
		}{
			{pruneFacultyCypher, map[string]any{"names": names}},
			{prunePublicationCypher, map[string]any{"ids": ids}},
			{dropPublishCypher, nil},
		}
		for _, step := range steps {
			if _, err := tx.Run(ctx, step.cypher, step.params); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Run(ctx, mergeFacultyCypher, map[string]any{"rows": faculty}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, mergePublicationCypher, map[string]any{"rows": pubs}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graphstore: load dataset: %w", err)
	}
	return nil
}

func (s *Neo4j) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func profileFromRecord(rec *neo4j.Record) *models.FacultyProfile {
	return &models.FacultyProfile{
		Name:     stringFromRecord(rec, "name"),
		Position: stringFromRecord(rec, "position"),
		PhotoURL: stringFromRecord(rec, "photoUrl"),
	}
}

func coauthorsFromRecords(records []*neo4j.Record) []models.Coauthor {
	out := make([]models.Coauthor, 0, len(records))
	for _, rec := range records {
		out = append(out, models.Coauthor{
			Name:              stringFromRecord(rec, "coauthor"),
			JointPublications: int64FromRecord(rec, "jointCount"),
		})
	}
	return out
}

func stringFromRecord(rec *neo4j.Record, key string) string {
	val, ok := rec.Get(key)
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

func int64FromRecord(rec *neo4j.Record, key string) int64 {
	val, ok := rec.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
