// Package repository binds an entity type to a pluralized collection of a
// document database and provides CRUD, paging and query operations on it,
// each in a blocking and an asynchronous form.
package repository
