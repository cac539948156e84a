package telemetry

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// gormRegister is satisfied by the callback returned from Before/After on a
// gorm callback processor
type gormRegister interface {
	Register(name string, fn func(*gorm.DB)) error
}

// statementHook is one gorm processor (create, query, ...) with the SQL
// operation it issues. Row and raw statements carry an empty operation and
// are classified from their SQL text.
type statementHook struct {
	kind      string
	operation string
	before    gormRegister
	after     gormRegister
}

func statementHooks(db *gorm.DB) []statementHook {
	cb := db.Callback()
	return []statementHook{
		{"create", "INSERT", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", "SELECT", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", "UPDATE", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", "", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", "", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
}

// registerStatementHooks registers before and after callbacks named
// "<prefix>:before_<kind>" and "<prefix>:after_<kind>" on every processor
func registerStatementHooks(db *gorm.DB, prefix string, before func(*gorm.DB), after func(db *gorm.DB, operation string)) error {
	for _, hook := range statementHooks(db) {
		if before != nil {
			if err := hook.before.Register(prefix+":before_"+hook.kind, before); err != nil {
				return fmt.Errorf("register %s before %s: %w", prefix, hook.kind, err)
			}
		}
		if after != nil {
			operation := hook.operation
			fn := func(db *gorm.DB) {
				op := operation
				if op == "" {
					op = detectOperationType(db.Statement.SQL.String())
				}
				after(db, op)
			}
			if err := hook.after.Register(prefix+":after_"+hook.kind, fn); err != nil {
				return fmt.Errorf("register %s after %s: %w", prefix, hook.kind, err)
			}
		}
	}
	return nil
}

// detectOperationType classifies a SQL statement by its leading keyword
func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
