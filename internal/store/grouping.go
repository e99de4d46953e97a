package store

import (
	"context"
	"fmt"
	"regexp"
)

const dirTracksGrouping = "dir_tracks"

var groupingName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Grouping 是“对象属于分组”的关联索引，键为 (group << bits) | object。
// 查询某个分组只需一次主键区间扫描，无需二级索引。
type Grouping struct {
	store *Store
	name  string
	bits  uint
}

func groupingDDL(name string) string {
	return "CREATE TABLE IF NOT EXISTS " + name + " (id INTEGER PRIMARY KEY)"
}

// Grouping 返回（必要时创建）名为 name 的关联索引表；bits 为对象 ID 的位数。
func (s *Store) Grouping(ctx context.Context, name string, bits uint) (*Grouping, error) {
	if !groupingName.MatchString(name) {
		return nil, fmt.Errorf("invalid grouping name %q", name)
	}
	if bits == 0 || bits >= 63 {
		return nil, fmt.Errorf("grouping %s: bits must be in [1, 62], got %d", name, bits)
	}

	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	if g, ok := s.groups[name]; ok {
		if g.bits != bits {
			return nil, fmt.Errorf("grouping %s already opened with %d bits", name, g.bits)
		}
		return g, nil
	}
	if _, err := s.db.ExecContext(ctx, groupingDDL(name)); err != nil {
		return nil, fmt.Errorf("create grouping %s: %w", name, err)
	}
	g := &Grouping{store: s, name: name, bits: bits}
	s.groups[name] = g
	return g, nil
}

func (g *Grouping) mask() uint64 {
	return 1<<g.bits - 1
}

func (g *Grouping) key(group, object uint64) (int64, error) {
	if object > g.mask() {
		return 0, fmt.Errorf("grouping %s: object %d exceeds %d bits", g.name, object, g.bits)
	}
	if group >= 1<<(63-g.bits) {
		return 0, fmt.Errorf("grouping %s: group %d out of range", g.name, group)
	}
	return int64(group<<g.bits | object), nil
}

func (g *Grouping) bounds(group uint64) (int64, int64, error) {
	lo, err := g.key(group, 0)
	if err != nil {
		return 0, 0, err
	}
	return lo, lo | int64(g.mask()), nil
}

// Add 在事务内登记成员关系；重复登记是幂等的。
func (g *Grouping) Add(ctx context.Context, tx *Tx, group, object uint64) error {
	key, err := g.key(group, object)
	if err != nil {
		return err
	}
	if _, err := tx.exec(ctx, "INSERT OR IGNORE INTO "+g.name+" (id) VALUES (?)", key); err != nil {
		return fmt.Errorf("grouping %s add: %w", g.name, err)
	}
	return nil
}

// ClearGroup 在事务内删除分组的全部成员。
func (g *Grouping) ClearGroup(ctx context.Context, tx *Tx, group uint64) error {
	lo, hi, err := g.bounds(group)
	if err != nil {
		return err
	}
	if _, err := tx.exec(ctx, "DELETE FROM "+g.name+" WHERE id BETWEEN ? AND ?", lo, hi); err != nil {
		return fmt.Errorf("grouping %s clear: %w", g.name, err)
	}
	return nil
}

// Contains 判断对象是否属于分组。
func (g *Grouping) Contains(ctx context.Context, group, object uint64) (bool, error) {
	key, err := g.key(group, object)
	if err != nil {
		return false, err
	}
	var one int
	err = g.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+g.name+" WHERE id = ?", key).Scan(&one)
	if err != nil {
		return false, fmt.Errorf("grouping %s contains: %w", g.name, err)
	}
	return one > 0, nil
}

// Objects 通过区间扫描返回分组内的全部对象 ID（升序）。
func (g *Grouping) Objects(ctx context.Context, group uint64) ([]uint64, error) {
	query, args, err := g.objectsQuery(group)
	if err != nil {
		return nil, err
	}
	rows, err := g.store.db.QueryContext(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("grouping %s objects: %w", g.name, err)
	}
	defer rows.Close()

	var result []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, uint64(id))
	}
	return result, rows.Err()
}

// objectsQuery 生成投影低 bits 位的子查询，可嵌入 IN (...) 条件。
func (g *Grouping) objectsQuery(group uint64) (string, []any, error) {
	lo, hi, err := g.bounds(group)
	if err != nil {
		return "", nil, err
	}
	return "SELECT id & ? FROM " + g.name + " WHERE id BETWEEN ? AND ?", []any{int64(g.mask()), lo, hi}, nil
}
