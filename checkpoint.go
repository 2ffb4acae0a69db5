package blockfile

// ObjectID identifies one block object of a table. Ids increase
// monotonically across rollovers and are never reused while a handle is
// alive.
type ObjectID uint32

// Checkpoint is the persisted record a table open supplies. Only
// RootObjectID is consumed here; Raw is owned by the checkpoint layer.
type Checkpoint struct {
	RootObjectID ObjectID
	Raw          []byte
}

// ckptState is the in-memory record of the currently live checkpoint of one
// block object. It is destroyed and rebuilt whenever the active object
// changes; a superseded instance is invalid for use.
type ckptState struct {
	tag          string
	rootObjectID ObjectID
	valid        bool
}

func newCkptState(tag string, root ObjectID) *ckptState {
	return &ckptState{tag: tag, rootObjectID: root, valid: true}
}

func (c *ckptState) destroy() {
	c.valid = false
	c.rootObjectID = 0
}
