// Package vectorindex implements the taxonomy vector index external
// collaborator from spec §6c: nearest-neighbor search over O*NET skill and
// task embeddings. The reference implementation stores embeddings as a
// github.com/pgvector/pgvector-go column in Postgres, queried over
// database/sql + github.com/lib/pq the same way the rest of the core's
// persistence does — grounded on the pack's AMD-AGI-Primus-SaFE
// skill_embeddings.go, which stores O*NET-shaped skill vectors the same way.
package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jobmatch/careerengine/internal/models"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Hit is one nearest-neighbor result: a taxonomy Skill and its similarity to
// the query, in [0,1] with higher meaning more similar (spec §6c).
type Hit struct {
	Skill models.Skill
	Score float64
}

// Index is the narrow interface the Mapper depends on (spec §6c):
// query(embedding|text, k, metadata_filter) -> [(skill_node, similarity)],
// ordered by similarity descending.
type Index interface {
	Search(ctx context.Context, text string, k int, skillType models.SkillType) ([]Hit, error)
}

// Embedder turns free text into the same vector space the taxonomy index
// was populated in. The offline population pipeline (spec §5, "offline
// pipelines... populate it") is out of scope; this module only reads.
type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// PGVectorIndex is the Postgres/pgvector-backed Index implementation.
type PGVectorIndex struct {
	db       *sql.DB
	embedder Embedder
}

// New constructs a PGVectorIndex over db using embedder to vectorize query
// text before the nearest-neighbor search.
func New(db *sql.DB, embedder Embedder) *PGVectorIndex {
	return &PGVectorIndex{db: db, embedder: embedder}
}

const searchSkillEmbeddings = `
SELECT s.skill_id, s.name, s.taxonomy_path, s.framework, s.external_id,
       s.hot_tech, s.in_demand, s.skill_type,
       COALESCE((SELECT array_agg(a.alias) FROM skill_aliases a WHERE a.skill_id = s.skill_id), ARRAY[]::text[]),
       1 - (e.embedding <=> $1) AS similarity
FROM skill_embeddings e
JOIN skills s ON s.skill_id = e.skill_id
WHERE s.skill_type = $2
ORDER BY e.embedding <=> $1
LIMIT $3
`

// Search implements the Index contract: embed text, then run a cosine
// nearest-neighbor query filtered to skillType, returning hits ordered by
// similarity descending (pgvector's <=> operator is cosine *distance*, so
// similarity = 1 - distance, matching the spec's "cosine-like scores in
// [0,1]").
func (p *PGVectorIndex) Search(ctx context.Context, text string, k int, skillType models.SkillType) ([]Hit, error) {
	if text == "" {
		return nil, nil
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: embed query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, searchSkillEmbeddings, vec, string(skillType), k)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var framework, skillTypeCol string
		var aliases pq.StringArray
		if err := rows.Scan(
			&h.Skill.ID, &h.Skill.Name, &h.Skill.TaxonomyPath, &framework, &h.Skill.ExternalID,
			&h.Skill.HotTech, &h.Skill.InDemand, &skillTypeCol, &aliases, &h.Score,
		); err != nil {
			return nil, fmt.Errorf("vectorindex: scan: %w", err)
		}
		h.Skill.Framework = models.Framework(framework)
		h.Skill.SkillType = models.SkillType(skillTypeCol)
		h.Skill.Aliases = []string(aliases)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}
