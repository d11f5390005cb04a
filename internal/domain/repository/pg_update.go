package repository

import (
	"fmt"
	"strings"
)

// pgUpdate accumulates "column = $n" assignments for a single-row partial update.
type pgUpdate struct {
	sets []string
	args []interface{}
}

func (u *pgUpdate) set(column string, value interface{}) {
	u.args = append(u.args, value)
	u.sets = append(u.sets, fmt.Sprintf("%s = $%d", column, len(u.args)))
}

func (u *pgUpdate) setString(column string, value *string) {
	if value != nil {
		u.set(column, *value)
	}
}

// build always bumps updated_at, so an empty update still touches the row
// and still reports a missing row as sql.ErrNoRows.
func (u *pgUpdate) build(table, returning, id string) (string, []interface{}) {
	sets := append(append([]string{}, u.sets...), "updated_at = CURRENT_TIMESTAMP")
	args := append(append([]interface{}{}, u.args...), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning)
	return query, args
}

func joinComma(parts []string) string {
	return strings.Join(parts, ", ")
}
