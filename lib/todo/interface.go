package todo

// ITodoStore is implemented by the local Store and by the rpc client, so the
// Model works the same on an embedded slot store and on a remote server.
type ITodoStore interface {
	// Name returns the collection name (the slot key).
	Name() string
	// Find returns the records matching all query fields, in storage order.
	Find(query Query) ([]Todo, error)
	// FindAll returns the full collection in storage order.
	FindAll() ([]Todo, error)
	// Save creates a record when id is NoID and returns it as a one-element slice.
	// Otherwise the patch is merged into the record with the id and the full
	// collection is returned. A missing id is not an error.
	Save(patch Patch, id ID) ([]Todo, error)
	// Remove deletes every record with the id and returns the remaining collection.
	Remove(id ID) ([]Todo, error)
	// Drop empties the collection and returns it.
	Drop() ([]Todo, error)
}
