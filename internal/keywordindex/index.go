// Package keywordindex implements the multi-field bleve-backed keyword
// index: tokenized content/entity_name/doc_summary fields with per-field
// boosts, untokenized keyword fields, native faceting, and field-match
// explanation.
package keywordindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
	"github.com/aman-labs/coderetrieval/internal/filter"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/queryparse"
)

// BoostWeights controls per-field score multiplication at query time.
type BoostWeights struct {
	EntityName float64
	DocSummary float64
	Content    float64
}

// DefaultBoostWeights returns the engine's default field boosts.
func DefaultBoostWeights() BoostWeights {
	return BoostWeights{EntityName: 3.0, DocSummary: 2.0, Content: 1.0}
}

// Validate rejects non-finite or non-positive boosts.
func (b BoostWeights) Validate() error {
	for name, v := range map[string]float64{
		"entity_name": b.EntityName,
		"doc_summary": b.DocSummary,
		"content":     b.Content,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return retrievalerrors.ValidationError(retrievalerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("keywordindex: boost %q must be finite and positive, got %v", name, v))
		}
	}
	return nil
}

// ScoredDocument is a single keyword search hit.
type ScoredDocument struct {
	Document   *model.IndexDocument
	Score      float64
	FieldMatch map[string][]string
}

// FacetValue is a single facet bucket: a field value and its document count.
type FacetValue struct {
	Value string
	Count int
}

// Index is the keyword index over indexed chunks.
type Index struct {
	mu         sync.RWMutex
	index      bleve.Index
	path       string
	closed     bool
	boosts     BoostWeights
	commitLock *flock.Flock
}

// New creates or opens a keyword index at path. An empty path creates an
// in-memory index, used for tests. Startup validates boosts per §4.3.
func New(path string, boosts BoostWeights) (*Index, error) {
	if err := boosts.Validate(); err != nil {
		return nil, err
	}

	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = openOrCreate(path, indexMapping)
	}
	if err != nil {
		return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}

	ki := &Index{index: idx, path: path, boosts: boosts}
	if path != "" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
		}
		ki.commitLock = flock.New(filepath.Join(path, ".commit.lock"))
	}
	return ki, nil
}

// openOrCreate opens an existing index at path, auto-recovering from a
// corrupted index by clearing and rebuilding it, or creates a new one.
func openOrCreate(path string, indexMapping *bleve.IndexMapping) (bleve.Index, error) {
	if validErr := validateIndexIntegrity(path); validErr != nil {
		slog.Warn("keyword_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original: %v)", path, rmErr, validErr)
		}
		slog.Info("keyword_index_cleared", slog.String("path", path), slog.String("reason", "corruption detected"))
	}

	idx, err := bleve.Open(path)
	switch {
	case err == bleve.ErrorIndexPathDoesNotExist:
		return bleve.New(path, indexMapping)
	case err != nil && isCorruptionError(err):
		slog.Warn("keyword_index_open_failed", slog.String("path", path), slog.String("error", err.Error()))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, fmt.Errorf("index corrupted, cannot clear: %w (original: %v)", rmErr, err)
		}
		return bleve.New(path, indexMapping)
	case err != nil:
		return nil, err
	default:
		return idx, nil
	}
}

func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		strings.Contains(s, "no such file or directory") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// AddChunks batch-upserts chunks. Commit is transactional per batch; on a
// disk-backed index the commit critical section is guarded by an advisory
// file lock so that concurrent processes never observe a partial commit.
func (ki *Index) AddChunks(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ki.mu.Lock()
	defer ki.mu.Unlock()
	if ki.closed {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeKeywordIndexIO, "keywordindex: index is closed")
	}

	batch := ki.index.NewBatch()
	for _, c := range chunks {
		doc := model.ToDocument(c)
		if err := batch.Index(doc.DocumentID, toBleveDoc(doc)); err != nil {
			return retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
		}
	}

	return ki.commit(func() error { return ki.index.Batch(batch) })
}

// RemoveByFile deletes every chunk belonging to path, returning the count
// of documents removed.
func (ki *Index) RemoveByFile(ctx context.Context, path string) (int, error) {
	ki.mu.Lock()
	defer ki.mu.Unlock()
	if ki.closed {
		return 0, retrievalerrors.ValidationError(retrievalerrors.ErrCodeKeywordIndexIO, "keywordindex: index is closed")
	}

	tq := bleve.NewTermQuery(path)
	tq.SetField(FieldFilePath)
	req := bleve.NewSearchRequest(tq)
	req.Size = math.MaxInt32
	req.Fields = nil

	result, err := ki.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}
	if len(result.Hits) == 0 {
		return 0, nil
	}

	batch := ki.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := ki.commit(func() error { return ki.index.Batch(batch) }); err != nil {
		return 0, err
	}
	return len(result.Hits), nil
}

// UpdateFile replaces a file's chunks: remove-then-add.
func (ki *Index) UpdateFile(ctx context.Context, path string, chunks []*model.Chunk) error {
	if _, err := ki.RemoveByFile(ctx, path); err != nil {
		return err
	}
	return ki.AddChunks(ctx, chunks)
}

// commit runs fn, guarded by the disk-backed commit lock when present so
// readers always observe either the pre- or post-commit state.
func (ki *Index) commit(fn func() error) error {
	if ki.commitLock != nil {
		if err := ki.commitLock.Lock(); err != nil {
			return retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
		}
		defer ki.commitLock.Unlock()
	}
	if err := fn(); err != nil {
		return retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}
	return nil
}

// SearchWithScores dispatches parsed to the bleve query shape its Kind
// names (§4.5: match-all, field-qualified, wildcard, phrase, or boosted
// multi-field), conjoins it with the given filters, and returns scored
// documents with optional field-match locations.
func (ki *Index) SearchWithScores(ctx context.Context, parsed queryparse.ParsedQuery, limit int, filters_ model.SearchFilters) ([]ScoredDocument, error) {
	ki.mu.RLock()
	defer ki.mu.RUnlock()
	if ki.closed {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeKeywordIndexIO, "keywordindex: index is closed")
	}

	q, err := ki.dispatchQuery(parsed, filters_, true)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true
	req.Fields = []string{"*"}

	result, err := ki.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}

	docs := make([]ScoredDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, ScoredDocument{
			Document:   hydrateDocument(hit),
			Score:      hit.Score,
			FieldMatch: extractFieldMatch(hit),
		})
	}
	return docs, nil
}

// LookupByEntityNames resolves graph-sourced entity names to their index
// documents, used to map transitive-closure results back to full hits.
func (ki *Index) LookupByEntityNames(ctx context.Context, names []string, limit int, filters_ model.SearchFilters) ([]ScoredDocument, error) {
	ki.mu.RLock()
	defer ki.mu.RUnlock()
	if ki.closed {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeKeywordIndexIO, "keywordindex: index is closed")
	}
	if len(names) == 0 {
		return nil, nil
	}

	disjuncts := make([]bleveQuery.Query, 0, len(names))
	for _, n := range names {
		tq := bleve.NewTermQuery(n)
		tq.SetField(FieldEntityNameKeyword)
		disjuncts = append(disjuncts, tq)
	}
	q := bleve.NewDisjunctionQuery(disjuncts...)

	filterQuery, err := filter.BuildQuery(filters_)
	if err != nil {
		return nil, err
	}
	finalQuery := bleveQuery.Query(q)
	if filterQuery != nil {
		finalQuery = bleve.NewConjunctionQuery(q, filterQuery)
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = limit
	req.Fields = []string{"*"}
	result, err := ki.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}

	docs := make([]ScoredDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, ScoredDocument{Document: hydrateDocument(hit), Score: hit.Score})
	}
	return docs, nil
}

// ComputeFacets returns the top facetLimit values per facet field
// (language, repository, entity_type), each recomputed against the filter
// set with that field's own dimension removed.
func (ki *Index) ComputeFacets(ctx context.Context, queryStr string, filters_ model.SearchFilters, facetLimit int) (map[string][]FacetValue, error) {
	ki.mu.RLock()
	defer ki.mu.RUnlock()
	if ki.closed {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeKeywordIndexIO, "keywordindex: index is closed")
	}

	facetFields := []string{FieldLanguage, FieldRepository, FieldEntityType}
	out := make(map[string][]FacetValue, len(facetFields))

	for _, field := range facetFields {
		scoped := filter.WithoutDimension(filters_, field)
		q, err := ki.dispatchQuery(parseOrMultiField(queryStr), scoped, true)
		if err != nil {
			return nil, err
		}

		req := bleve.NewSearchRequest(q)
		req.Size = 0
		req.AddFacet(field, bleve.NewFacetRequest(field, facetLimit))

		result, err := ki.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
		}

		facetResult, ok := result.Facets[field]
		if !ok || facetResult.Terms == nil {
			continue
		}
		values := make([]FacetValue, 0, len(facetResult.Terms))
		for _, term := range facetResult.Terms {
			values = append(values, FacetValue{Value: term.Term, Count: term.Count})
		}
		sort.Slice(values, func(i, j int) bool { return values[i].Count > values[j].Count })
		out[field] = values
	}

	return out, nil
}

// parseOrMultiField parses raw, falling back to a plain multi-field
// classification if it fails to parse (used by facet computation, which
// only needs the matching set, not strict query validation).
func parseOrMultiField(raw string) queryparse.ParsedQuery {
	parsed, err := queryparse.Parse(raw)
	if err != nil {
		return queryparse.ParsedQuery{Kind: queryparse.KindMultiField, Raw: raw}
	}
	return parsed
}

// dispatchQuery builds the bleve query for parsed per its Kind (§4.5) and
// conjoins it with filters.
func (ki *Index) dispatchQuery(parsed queryparse.ParsedQuery, filters_ model.SearchFilters, withBoosts bool) (bleveQuery.Query, error) {
	fieldsQuery := ki.fieldsQueryFor(parsed, withBoosts)

	filterQuery, err := filter.BuildQuery(filters_)
	if err != nil {
		return nil, err
	}
	if filterQuery == nil {
		return fieldsQuery, nil
	}
	return bleve.NewConjunctionQuery(fieldsQuery, filterQuery), nil
}

// fieldsQueryFor builds the unfiltered query for parsed's shape:
//  1. empty -> match-all.
//  2. field-qualified -> exact/prefix match on the named field, or a
//     multi-field query over the literal "field:value" text if the field
//     name isn't recognized.
//  3. wildcard -> WildcardQuery OR'd across the default searchable fields.
//  4. phrase -> MatchPhraseQuery OR'd across the default searchable fields;
//     bleve naturally contributes nothing from a field that tokenizes the
//     phrase to zero terms.
//  5. structural/multi-field -> the boosted MatchQuery OR across fields
//     that was previously the only case this engine ever built. Structural
//     predicates are resolved by the graph branch; the keyword branch still
//     treats their raw text as a plain multi-field query so they also
//     surface literal keyword hits.
func (ki *Index) fieldsQueryFor(parsed queryparse.ParsedQuery, withBoosts bool) bleveQuery.Query {
	switch parsed.Kind {
	case queryparse.KindEmpty:
		return bleve.NewMatchAllQuery()
	case queryparse.KindFieldQualified:
		return ki.fieldQualifiedQuery(parsed.Field, parsed.Value, withBoosts)
	case queryparse.KindWildcard:
		return ki.multiFieldQuery(parsed.Raw, withBoosts, wildcardBuilder)
	case queryparse.KindPhrase:
		return ki.multiFieldQuery(parsed.Value, withBoosts, phraseBuilder)
	default: // KindStructural, KindMultiField
		return ki.multiFieldQuery(parsed.Raw, withBoosts, matchBuilder)
	}
}

// fieldQualifiedQuery maps a "field:value" query onto the matching index
// field: exact term match for the keyword-mapped facet fields, prefix
// match for file_path (§4.6), and a boosted match query for the tokenized
// text fields. An unrecognized field name degrades to a multi-field query
// over the literal "field:value" text rather than matching nothing.
func (ki *Index) fieldQualifiedQuery(field, value string, withBoosts bool) bleveQuery.Query {
	switch field {
	case FieldLanguage, FieldRepository, FieldEntityType:
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		return tq
	case FieldFilePath:
		pq := bleve.NewPrefixQuery(value)
		pq.SetField(FieldFilePath)
		return pq
	case FieldEntityName:
		return ki.textFieldQuery(FieldEntityName, value, ki.boosts.EntityName, withBoosts)
	case FieldDocSummary:
		return ki.textFieldQuery(FieldDocSummary, value, ki.boosts.DocSummary, withBoosts)
	case FieldContent:
		return ki.textFieldQuery(FieldContent, value, ki.boosts.Content, withBoosts)
	default:
		return ki.multiFieldQuery(field+":"+value, withBoosts, matchBuilder)
	}
}

func (ki *Index) textFieldQuery(field, value string, boost float64, withBoosts bool) bleveQuery.Query {
	mq := bleve.NewMatchQuery(value)
	mq.SetField(field)
	if withBoosts {
		mq.SetBoost(boost)
	}
	return mq
}

// fieldBoostQuery is the subset of bleve's concrete query types this engine
// needs: settable field and boost. MatchQuery, MatchPhraseQuery, and
// WildcardQuery all satisfy it structurally.
type fieldBoostQuery interface {
	bleveQuery.Query
	SetField(field string)
	SetBoost(boost float64)
}

func matchBuilder(s string) fieldBoostQuery    { return bleve.NewMatchQuery(s) }
func phraseBuilder(s string) fieldBoostQuery   { return bleve.NewMatchPhraseQuery(s) }
func wildcardBuilder(s string) fieldBoostQuery { return bleve.NewWildcardQuery(s) }

// multiFieldQuery builds one query per default searchable field
// (content/entity_name/doc_summary) via build, applies configured boosts,
// and ORs them together.
func (ki *Index) multiFieldQuery(text string, withBoosts bool, build func(string) fieldBoostQuery) bleveQuery.Query {
	content := build(text)
	content.SetField(FieldContent)
	entity := build(text)
	entity.SetField(FieldEntityName)
	summary := build(text)
	summary.SetField(FieldDocSummary)

	if withBoosts {
		content.SetBoost(ki.boosts.Content)
		entity.SetBoost(ki.boosts.EntityName)
		summary.SetBoost(ki.boosts.DocSummary)
	}

	return bleve.NewDisjunctionQuery(content, entity, summary)
}

// extractFieldMatch collects, per matched field, the set of matched terms
// for field-match explanation.
func extractFieldMatch(hit *search.DocumentMatch) map[string][]string {
	if len(hit.Locations) == 0 {
		return nil
	}
	out := make(map[string][]string, len(hit.Locations))
	for field, locations := range hit.Locations {
		terms := make([]string, 0, len(locations))
		for term := range locations {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		out[field] = terms
	}
	return out
}

// hydrateDocument rebuilds a model.IndexDocument from a search hit's stored
// field values (requires the request to have set Fields to "*" or the
// explicit field list) rather than leaving every field but DocumentID
// zero-valued.
func hydrateDocument(hit *search.DocumentMatch) *model.IndexDocument {
	doc := &model.IndexDocument{
		DocumentID:        hit.ID,
		Content:           stringField(hit.Fields, FieldContent),
		EntityName:        stringField(hit.Fields, FieldEntityName),
		DocSummary:        stringField(hit.Fields, FieldDocSummary),
		EntityNameKeyword: stringField(hit.Fields, FieldEntityNameKeyword),
		Language:          stringField(hit.Fields, FieldLanguage),
		EntityType:        stringField(hit.Fields, FieldEntityType),
		FilePath:          stringField(hit.Fields, FieldFilePath),
		Repository:        stringField(hit.Fields, FieldRepository),
		StartLine:         intField(hit.Fields, "start_line"),
		EndLine:           intField(hit.Fields, "end_line"),
		StartByte:         intField(hit.Fields, "start_byte"),
		EndByte:           intField(hit.Fields, "end_byte"),
	}

	for key, value := range hit.Fields {
		if !strings.HasPrefix(key, model.MetaFieldPrefix) {
			continue
		}
		if doc.Meta == nil {
			doc.Meta = make(map[string]string)
		}
		doc.Meta[key] = fmt.Sprintf("%v", value)
	}

	return doc
}

func stringField(fields map[string]interface{}, name string) string {
	v, ok := fields[name].(string)
	if !ok {
		return ""
	}
	return v
}

func intField(fields map[string]interface{}, name string) int {
	switch v := fields[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// AllIDs returns every document ID in the index, for consistency checks
// between the keyword index and the vector store.
func (ki *Index) AllIDs(ctx context.Context) ([]string, error) {
	ki.mu.RLock()
	defer ki.mu.RUnlock()
	if ki.closed {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeKeywordIndexIO, "keywordindex: index is closed")
	}

	docCount, _ := ki.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = nil

	result, err := ki.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, retrievalerrors.Wrap(retrievalerrors.ErrCodeKeywordIndexIO, err)
	}
	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Close closes the underlying index.
func (ki *Index) Close() error {
	ki.mu.Lock()
	defer ki.mu.Unlock()
	if ki.closed {
		return nil
	}
	ki.closed = true
	if ki.index != nil {
		return ki.index.Close()
	}
	return nil
}
