// Package todo persists todo collections in the slots of a store.IStore.
//
// A collection is an ordered list of records stored as one JSON document
// {"todos":[...]} under the collection name. Every read decodes the whole
// document and every write replaces it, there is no secondary index.
//
// Records carry a numeric ID, a title and a completed flag. Patches may attach
// further fields, they are merged shallowly and kept in Todo.Extra.
//
// Ids are millisecond timestamps that are bumped to last+1 when two records are
// created within the same millisecond. Ids stored as numeric strings ("3") by older
// writers decode to the same ID as the number.
//
// Usage Example:
//
//	slots := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
//	todos, current, err := todo.Open(slots, "todos-default")
//	if err != nil { ... }
//	created, err := todos.Save(todo.Patch{"title": "buy milk", "completed": false}, todo.NoID)
//	open, err := todos.Find(todo.Query{"completed": false})
package todo
