package helpers

import (
	"context"

	"github.com/onsi/gomega"

	"github.com/ehving/noticesystem-sub000/internal/app/storage"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// SeedRole writes a role straight into the role table of s.
func SeedRole(f *storage.MemoryFactory, s store.Store, id, name string) {
	table := f.Backend().Table(s, "role")
	gomega.Expect(table).NotTo(gomega.BeNil())
	table.Put(&entity.Role{ID: id, Name: name})
}

// SeedDept writes a department straight into the dept table of s.
func SeedDept(f *storage.MemoryFactory, s store.Store, id, name string, parentID *string) {
	table := f.Backend().Table(s, "dept")
	gomega.Expect(table).NotTo(gomega.BeNil())
	table.Put(&entity.Dept{ID: id, Name: name, ParentID: parentID})
}

// RoleName reads the name of role id from s, or "" when absent.
func RoleName(f *storage.MemoryFactory, s store.Store, id string) string {
	row, err := f.Backend().Table(s, "role").GetByID(context.Background(), id)
	if err != nil {
		return ""
	}
	return row.(*entity.Role).Name
}

// TableLen counts the rows of table in s.
func TableLen(f *storage.MemoryFactory, s store.Store, table string) int {
	return f.Backend().Table(s, table).Len()
}
