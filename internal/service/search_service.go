package service

import (
	"context"
	"fmt"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/repository"
)

// maxTextHits bounds how many full-text hits are paged through in memory.
const maxTextHits = 500

type SearchService struct {
	subs  *repository.SubmissionRepo
	items *repository.ContentRepo
}

func NewSearchService(subs *repository.SubmissionRepo, items *repository.ContentRepo) *SearchService {
	return &SearchService{subs: subs, items: items}
}

type SearchRequest struct {
	FormID       string                      `json:"formId"`
	Filters      map[string]FilterDescriptor `json:"filters,omitempty"`
	TextQuery    string                      `json:"textQuery,omitempty"`
	ContentKinds []models.ContentKind        `json:"contentKinds,omitempty"`
	Skip         int                         `json:"skip"`
	Limit        int                         `json:"limit"`
}

type FilterDescriptor struct {
	Value any    `json:"value,omitempty"`
	Min   any    `json:"min,omitempty"`
	Max   any    `json:"max,omitempty"`
	Op    string `json:"op,omitempty"` // eq, ne, gt, gte, lt, lte, in
}

type SearchResult struct {
	Submissions []models.Submission  `json:"submissions"`
	Content     []models.ContentItem `json:"content,omitempty"`
	Total       int                  `json:"total"`
	Mode        string               `json:"mode"`
}

func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Skip < 0 {
		req.Skip = 0
	}
	query, err := buildQuery(req.FormID, req.Filters)
	if err != nil {
		return nil, err
	}

	hasFilters := len(req.Filters) > 0
	hasText := req.TextQuery != ""

	var res *SearchResult
	switch {
	case hasText:
		res, err = s.textSearch(ctx, req, query, hasFilters)
	default:
		subs, total, qerr := s.subs.Query(ctx, query, req.Skip, req.Limit)
		mode := "all"
		if hasFilters {
			mode = "structured"
		}
		res, err = &SearchResult{Submissions: subs, Total: total, Mode: mode}, qerr
	}
	if err != nil {
		return nil, err
	}

	if hasText {
		for _, kind := range req.ContentKinds {
			if !kind.Valid() {
				return nil, invalid("unknown content kind %q", kind)
			}
			items, err := s.items.TextSearch(ctx, kind, req.TextQuery, req.Limit)
			if err != nil {
				return nil, fmt.Errorf("search %s: %w", kind, err)
			}
			res.Content = append(res.Content, items...)
		}
	}
	return res, nil
}

// textSearch ranks submissions by the text index, then keeps only hits in
// the form and, in combined mode, matching the structured filters.
func (s *SearchService) textSearch(ctx context.Context, req SearchRequest, query map[string]any, combined bool) (*SearchResult, error) {
	hits, err := s.subs.TextSearch(ctx, req.TextQuery, maxTextHits)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Submission, 0, len(hits))
	for _, hit := range hits {
		if req.FormID != "" && hit.FormID != req.FormID {
			continue
		}
		if combined {
			sub, err := s.subs.FindMatching(ctx, hit.ID, query)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				continue
			}
		}
		matched = append(matched, hit)
	}

	mode := "text"
	if combined {
		mode = "combined"
	}
	total := len(matched)
	if req.Skip >= total {
		return &SearchResult{Submissions: []models.Submission{}, Total: total, Mode: mode}, nil
	}
	end := min(req.Skip+req.Limit, total)
	return &SearchResult{Submissions: matched[req.Skip:end], Total: total, Mode: mode}, nil
}

var filterOps = map[string]string{
	"eq": "", "ne": "$ne", "gt": "$gt", "gte": "$gte", "lt": "$lt", "lte": "$lte", "in": "$in",
}

// buildQuery turns filter descriptors into one OxiDB query. Conditions on
// the same field share one operator object.
func buildQuery(formID string, filters map[string]FilterDescriptor) (map[string]any, error) {
	query := map[string]any{}
	if formID != "" {
		query["formId"] = formID
	}
	for field, f := range filters {
		key := "data." + field
		ops := map[string]any{}
		if present(f.Min) {
			ops["$gte"] = f.Min
		}
		if present(f.Max) {
			ops["$lte"] = f.Max
		}
		if present(f.Value) {
			name := f.Op
			if name == "" {
				name = "eq"
			}
			op, ok := filterOps[name]
			if !ok {
				return nil, invalid("unknown filter op %q on %s", f.Op, field)
			}
			if op == "" {
				if len(ops) == 0 {
					query[key] = f.Value
					continue
				}
				op = "$eq"
			}
			ops[op] = f.Value
		}
		if len(ops) > 0 {
			query[key] = ops
		}
	}
	return query, nil
}

func present(v any) bool {
	if v == nil {
		return false
	}
	s, ok := v.(string)
	return !ok || s != ""
}
