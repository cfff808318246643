package salesdoc

import "github.com/xraph/salesdoc/id"

// ID is the primary identifier type for all salesdoc entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// ParseDocumentID parses an estimate, contract or invoice id.
var ParseDocumentID = id.ParseDocumentID
