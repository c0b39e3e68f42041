package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

// ---------------------------------------------------------------------------
// Policy library
// ---------------------------------------------------------------------------

type policyRow struct {
	ID               int64     `db:"id"`
	Title            string    `db:"title"`
	Sector           string    `db:"sector"`
	OrganizationSize string    `db:"organization_size"`
	RiskAppetite     string    `db:"risk_appetite"`
	Timeline         string    `db:"timeline"`
	Status           string    `db:"status"`
	Version          int       `db:"version"`
	ExecutiveSummary string    `db:"executive_summary"`
	SectionsJSON     string    `db:"sections_json"`
	CreatedBy        int64     `db:"created_by"`
	CreatedAt        time.Time `db:"created_at"`
	LastModified     time.Time `db:"last_modified"`
}

func (r policyRow) toModel() (model.Policy, error) {
	p := model.Policy{
		ID:               r.ID,
		Title:            r.Title,
		Sector:           r.Sector,
		OrganizationSize: r.OrganizationSize,
		RiskAppetite:     r.RiskAppetite,
		Timeline:         r.Timeline,
		Status:           r.Status,
		Version:          r.Version,
		ExecutiveSummary: r.ExecutiveSummary,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		LastModified:     r.LastModified,
	}
	if err := json.Unmarshal([]byte(r.SectionsJSON), &p.Sections); err != nil {
		return p, fmt.Errorf("decode sections: %w", err)
	}
	return p, nil
}

// PolicyList describes the policy library list view.
var PolicyList = listSpec{
	from: "policies",
	columns: []string{
		"id", "title", "sector", "organization_size", "risk_appetite", "timeline",
		"status", "version", "executive_summary", "sections_json", "created_by",
		"created_at", "last_modified",
	},
	search: []string{"title", "sector"},
	sortable: map[string]string{
		"title":        "title",
		"createdAt":    "created_at",
		"lastModified": "last_modified",
		"status":       "status",
		"sector":       "sector",
	},
	filters: map[string]func(string) (sq.Sqlizer, error){
		"status": eqFilter("status"),
		"sector": eqFilter("sector"),
	},
	defaultSort: "last_modified DESC",
}

// CreatePolicy inserts a policy at version 1.
func (s *Store) CreatePolicy(ctx context.Context, p *model.Policy) error {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	if p.Status == "" {
		p.Status = model.PolicyDraft
	}
	p.Version = 1
	now := time.Now().UTC()
	id, err := s.insert(ctx, s.db, s.sb.Insert("policies").
		Columns("title", "sector", "organization_size", "risk_appetite", "timeline", "status",
			"version", "executive_summary", "sections_json", "created_by", "created_at", "last_modified").
		Values(p.Title, p.Sector, p.OrganizationSize, p.RiskAppetite, p.Timeline, p.Status,
			p.Version, p.ExecutiveSummary, string(sections), p.CreatedBy, now, now))
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.LastModified = now
	return nil
}

// GetPolicy retrieves a policy by ID.
func (s *Store) GetPolicy(ctx context.Context, id int64) (*model.Policy, error) {
	var row policyRow
	if err := s.get(ctx, s.db, &row, s.sb.Select(PolicyList.columns...).From("policies").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPolicies returns one page of the policy library.
func (s *Store) ListPolicies(ctx context.Context, st *table.State) ([]model.Policy, int64, error) {
	var rows []policyRow
	total, err := s.list(ctx, PolicyList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list policies: %w", err)
	}
	out := make([]model.Policy, len(rows))
	for i, r := range rows {
		if out[i], err = r.toModel(); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// UpdatePolicy snapshots the stored policy into its version history, then
// writes p with the version bumped by one.
func (s *Store) UpdatePolicy(ctx context.Context, p *model.Policy, modifiedBy int64) error {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var cur policyRow
	if err := s.get(ctx, tx, &cur, s.sb.Select(PolicyList.columns...).From("policies").Where(sq.Eq{"id": p.ID})); err != nil {
		return err
	}
	_, err = s.exec(ctx, tx, s.sb.Insert("policy_versions").
		Columns("policy_id", "version", "title", "status", "executive_summary", "sections_json", "modified_by", "created_at").
		Values(cur.ID, cur.Version, cur.Title, cur.Status, cur.ExecutiveSummary, cur.SectionsJSON, modifiedBy, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("snapshot policy: %w", err)
	}

	p.Version = cur.Version + 1
	p.LastModified = time.Now().UTC()
	err = s.execAffected(ctx, tx, s.sb.Update("policies").
		Set("title", p.Title).
		Set("sector", p.Sector).
		Set("organization_size", p.OrganizationSize).
		Set("risk_appetite", p.RiskAppetite).
		Set("timeline", p.Timeline).
		Set("status", p.Status).
		Set("version", p.Version).
		Set("executive_summary", p.ExecutiveSummary).
		Set("sections_json", string(sections)).
		Set("last_modified", p.LastModified).
		Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	p.CreatedAt = cur.CreatedAt
	p.CreatedBy = cur.CreatedBy
	return nil
}

// DeletePolicies removes policies and their version history.
func (s *Store) DeletePolicies(ctx context.Context, ids []int64) (int64, error) {
	return s.deleteIDs(ctx, "policies", ids)
}

type policyVersionRow struct {
	ID               int64     `db:"id"`
	PolicyID         int64     `db:"policy_id"`
	Version          int       `db:"version"`
	Title            string    `db:"title"`
	Status           string    `db:"status"`
	ExecutiveSummary string    `db:"executive_summary"`
	SectionsJSON     string    `db:"sections_json"`
	ModifiedBy       int64     `db:"modified_by"`
	CreatedAt        time.Time `db:"created_at"`
}

// ListPolicyVersions returns the version history of a policy, newest first.
func (s *Store) ListPolicyVersions(ctx context.Context, policyID int64) ([]model.PolicyVersion, error) {
	var rows []policyVersionRow
	err := s.selectAll(ctx, s.db, &rows, s.sb.Select("id", "policy_id", "version", "title", "status",
		"executive_summary", "sections_json", "modified_by", "created_at").
		From("policy_versions").Where(sq.Eq{"policy_id": policyID}).OrderBy("version DESC"))
	if err != nil {
		return nil, fmt.Errorf("list policy versions: %w", err)
	}
	out := make([]model.PolicyVersion, len(rows))
	for i, r := range rows {
		out[i] = model.PolicyVersion{
			ID:               r.ID,
			PolicyID:         r.PolicyID,
			Version:          r.Version,
			Title:            r.Title,
			Status:           r.Status,
			ExecutiveSummary: r.ExecutiveSummary,
			ModifiedBy:       r.ModifiedBy,
			CreatedAt:        r.CreatedAt,
		}
		if err := json.Unmarshal([]byte(r.SectionsJSON), &out[i].Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
	}
	return out, nil
}
