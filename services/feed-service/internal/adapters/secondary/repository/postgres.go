package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/ports"
)

// catalogTable décrit comment lire un type d'entité.
type catalogTable struct {
	name   string
	owner  string
	title  string
	status string // expression SQL
}

var tables = map[explore.EntityType]catalogTable{
	explore.TypeProject:       {name: "projects", owner: "owner_id", title: "title", status: "status"},
	explore.TypeCollaboration: {name: "collaborations", owner: "owner_id", title: "title", status: "status"},
	// Un partenaire n'a pas de cycle de vie
	explore.TypePartner: {name: "partners", owner: "user_id", title: "display_name", status: "'active'::text"},
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) ports.CatalogRepository {
	return &PostgresRepo{db: db}
}

// List : PAGINATION KEYSET sur (created_at, id).
// L'id départage les items créés à la même date.
func (r *PostgresRepo) List(ctx context.Context, t explore.EntityType, f explore.Filter, after explore.Cursor, limit int) ([]explore.FeedItem, error) {
	query, args, err := buildListQuery(t, f, after, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (explore.FeedItem, error) {
		it := explore.FeedItem{Type: t}
		var category *string
		err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &category, &it.Status, &it.CreatedAt)
		if category != nil {
			it.Category = *category
		}
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t, err)
	}
	return items, nil
}

func buildListQuery(t explore.EntityType, f explore.Filter, after explore.Cursor, limit int) (string, pgx.NamedArgs, error) {
	tbl, ok := tables[t]
	if !ok {
		return "", nil, fmt.Errorf("unknown entity type %q", t)
	}

	var where []string
	args := pgx.NamedArgs{"limit": limit}

	if f.Category != "" {
		where = append(where, "category = @category")
		args["category"] = f.Category
	}
	if len(f.Statuses) > 0 && t != explore.TypePartner {
		sts := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			sts[i] = string(s)
		}
		where = append(where, "status = ANY(@statuses)")
		args["statuses"] = sts
	}
	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		where = append(where, tbl.title+` ILIKE @search ESCAPE '\'`)
		args["search"] = "%" + escapeLike(q) + "%"
	}
	if !after.IsStart() {
		where = append(where, "(created_at, id) < (@after_ts, @after_id)")
		args["after_ts"] = after.CreatedAt
		args["after_id"] = after.ID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, %s, %s, category, %s, created_at FROM %s", tbl.owner, tbl.title, tbl.status, tbl.name)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT @limit")
	return b.String(), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
