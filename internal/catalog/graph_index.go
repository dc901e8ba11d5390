package catalog

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// GraphIndexWriter mirrors Edge rows into an optional Neo4j graph index
// (§4.5's "optional backend" for coupling_graph), adapted from the
// teacher's Neo4jBackend + CypherBuilder: every value is bound as a
// query parameter, never interpolated into the Cypher text.
type GraphIndexWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewGraphIndexWriter connects to uri and verifies connectivity.
func NewGraphIndexWriter(ctx context.Context, uri, username, password, database string) (*GraphIndexWriter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to create graph index driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, lfcaerrors.IOf(err, "failed to connect to graph index at %s", uri)
	}
	return &GraphIndexWriter{driver: driver, database: database}, nil
}

// Close releases the driver's connection pool.
func (w *GraphIndexWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

// WriteEdges merges one :File node per endpoint and one :COUPLED_WITH
// edge per Edge row, using UNWIND batches rather than one query per row
// (same batching shape as the teacher's BatchNodeCreator). identities
// supplies each node's path_current so the graph index's File nodes are
// addressable by path, not just identity id — git.FileResolver's
// exactMatch/gitFollowMatch queries depend on f.path existing.
func (w *GraphIndexWriter) WriteEdges(ctx context.Context, edges []models.Edge, identities []*models.FileIdentity) error {
	if len(identities) > 0 {
		nodeRows := make([]map[string]any, 0, len(identities))
		for _, fi := range identities {
			if fi == nil {
				continue
			}
			nodeRows = append(nodeRows, map[string]any{"identity_id": fi.ID, "path": fi.PathCurrent})
		}
		nodeCypher := `UNWIND $rows AS row MERGE (f:File {identity_id: row.identity_id}) SET f.path = row.path`
		if _, err := neo4j.ExecuteQuery(ctx, w.driver, nodeCypher,
			map[string]any{"rows": nodeRows},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(w.database)); err != nil {
			return lfcaerrors.IOf(err, "failed to mirror %d file identities into graph index", len(nodeRows))
		}
	}

	if len(edges) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{
			"src": e.Src, "dst": e.Dst,
			"pair_count": e.PairCount, "pair_weight": e.PairWeight,
			"jaccard": e.Jaccard, "jaccard_weighted": e.JaccardWeighted,
			"p_dst_given_src": e.PDstGivenSrc, "p_src_given_dst": e.PSrcGivenDst,
		})
	}

	cypher := `UNWIND $rows AS row
		MERGE (a:File {identity_id: row.src})
		MERGE (b:File {identity_id: row.dst})
		MERGE (a)-[r:COUPLED_WITH]->(b)
		SET r.pair_count = row.pair_count, r.pair_weight = row.pair_weight,
		    r.jaccard = row.jaccard, r.jaccard_weighted = row.jaccard_weighted,
		    r.p_dst_given_src = row.p_dst_given_src, r.p_src_given_dst = row.p_src_given_dst`

	_, err := neo4j.ExecuteQuery(ctx, w.driver, cypher,
		map[string]any{"rows": rows},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(w.database))
	if err != nil {
		return lfcaerrors.IOf(err, "failed to mirror %d edges into graph index", len(edges))
	}
	return nil
}

// ExecuteQuery runs an arbitrary Cypher query against the graph index,
// returning each record as a plain map. This is the seam git.FileResolver
// binds to as its GraphQueryer: the graph index is the only catalog
// backend capable of answering "does this historical path exist anywhere
// in the graph", since the SQL catalog indexes file_identities by current
// path only.
func (w *GraphIndexWriter) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, w.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(w.database))
	if err != nil {
		return nil, lfcaerrors.IOf(err, "graph index query failed")
	}

	rows := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make(map[string]any, len(rec.Keys))
		for _, key := range rec.Keys {
			v, _ := rec.Get(key)
			row[key] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NeighborsFromGraphIndex queries the graph index directly for an
// identity's coupled neighbors — an alternate read path exercising the
// graph index's own traversal strength rather than falling back to the
// SQL catalog, for callers that have configured one.
func (w *GraphIndexWriter) NeighborsFromGraphIndex(ctx context.Context, identityID int64, limit int) ([]int64, error) {
	cypher := `MATCH (a:File {identity_id: $id})-[r:COUPLED_WITH]-(b:File)
		RETURN b.identity_id AS neighbor ORDER BY r.jaccard DESC LIMIT $limit`
	result, err := neo4j.ExecuteQuery(ctx, w.driver, cypher,
		map[string]any{"id": identityID, "limit": limit},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(w.database))
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to query graph index neighbors for identity %d", identityID)
	}

	neighbors := make([]int64, 0, len(result.Records))
	for _, rec := range result.Records {
		v, ok := rec.Get("neighbor")
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			neighbors = append(neighbors, n)
		default:
			return nil, lfcaerrors.Internalf("unexpected neighbor value type %T", v)
		}
	}
	return neighbors, nil
}
