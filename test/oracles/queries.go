package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All lists the ledger invariants. Each query returns rows only when the
// invariant is broken.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_pending_is_total_minus_paid",
			SQL: `SELECT id, total_amount, paid_amount, pending_amount FROM collaborations
                  WHERE pending_amount <> total_amount - paid_amount`,
		},
		{
			Name: "O2_available_has_no_sold_price",
			SQL:  `SELECT id, sold_price FROM properties WHERE status = 'Available' AND sold_price <> 0`,
		},
		{
			Name: "O3_orphan_property_interactions",
			SQL: `SELECT i.id, i.property_id FROM property_interactions i
                  LEFT JOIN properties p ON p.id = i.property_id
                  WHERE p.id IS NULL`,
		},
		{
			Name: "O4_orphan_collaboration_interactions",
			SQL: `SELECT i.id, i.collaboration_id FROM collaboration_interactions i
                  LEFT JOIN collaborations c ON c.id = i.collaboration_id
                  WHERE c.id IS NULL`,
		},
		{
			Name: "O5_sale_token_without_sale",
			SQL: `SELECT r.token, p.id, p.status FROM sale_requests r
                  JOIN properties p ON p.id = r.property_id
                  WHERE p.status <> 'Sold'`,
		},
		{
			Name: "O6_negative_amounts",
			SQL: `SELECT 'property' AS kind, id FROM properties WHERE price < 0 OR sold_price < 0
                  UNION ALL
                  SELECT 'collaboration', id FROM collaborations WHERE total_amount < 0 OR paid_amount < 0`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
