package projection

import (
	"context"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeCollection is a minimal in-memory stand-in for store.Collection,
// enough to exercise insert-conflict and guarded-update-matching behavior
// without a live MongoDB server.
type fakeCollection struct {
	docs map[string]map[string]interface{}

	insertErr error
	updateErr error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: map[string]map[string]interface{}{}}
}

func (f *fakeCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	doc := toMap(document)
	id, _ := doc["_id"].(string)
	if _, exists := f.docs[id]; exists {
		return nil, mongo.WriteException{
			WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "duplicate key"}},
		}
	}
	f.docs[id] = doc
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	filterMap := toMap(filter)
	id, _ := filterMap["_id"].(string)

	doc, exists := f.docs[id]
	if !exists {
		upsert := false
		for _, o := range opts {
			if o.Upsert != nil && *o.Upsert {
				upsert = true
			}
		}
		if upsert {
			doc = map[string]interface{}{"_id": id}
			f.docs[id] = doc
			applyUpdate(doc, update)
			return &mongo.UpdateResult{MatchedCount: 0, ModifiedCount: 0, UpsertedCount: 1, UpsertedID: id}, nil
		}
		return &mongo.UpdateResult{MatchedCount: 0}, nil
	}

	// Evaluate the $ne guard used by ParticipantJoined.
	if !matchesGuard(doc, filterMap) {
		return &mongo.UpdateResult{MatchedCount: 0}, nil
	}

	applyUpdate(doc, update)
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// toMap normalizes the document/filter/update arguments the handlers pass
// in (always bson.M or nested bson.M/bson.A literals) into plain
// map[string]interface{}/[]interface{} so the fake can walk them without
// importing the handlers' literal types everywhere.
func toMap(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case bson.M:
		return map[string]interface{}(t)
	default:
		return map[string]interface{}{}
	}
}

// toSlice normalizes bson.A and any other slice-typed value (handlers also
// pass plain []string, e.g. allowed_users) into []interface{}.
func toSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	case bson.A:
		return []interface{}(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func matchesGuard(doc map[string]interface{}, filter map[string]interface{}) bool {
	neFilter, ok := filter["participants.list.user_id"]
	if !ok {
		return true
	}
	neMap := toMap(neFilter)
	if len(neMap) == 0 {
		return true
	}
	want, _ := neMap["$ne"].(string)

	participants := toMap(doc["participants"])
	list := toSlice(participants["list"])
	for _, entry := range list {
		m := toMap(entry)
		if uid, _ := m["user_id"].(string); uid == want {
			return false
		}
	}
	return true
}

func applyUpdate(doc map[string]interface{}, update interface{}) {
	u := toMap(update)

	if set := toMap(u["$set"]); len(set) > 0 {
		for k, v := range set {
			setDotted(doc, k, v)
		}
	}
	if inc := toMap(u["$inc"]); len(inc) > 0 {
		for k, v := range inc {
			curInt, _ := getDotted(doc, k).(int)
			delta, _ := v.(int)
			setDotted(doc, k, curInt+delta)
		}
	}
	if add := toMap(u["$addToSet"]); len(add) > 0 {
		for k, v := range add {
			list := append(toSlice(getDotted(doc, k)), v)
			setDotted(doc, k, list)
		}
	}
}

// setDotted writes value at a one-level dotted path (e.g.
// "metadata.updated_at"), normalizing the parent to map[string]interface{}
// on first write. Nesting in this store is never more than one level deep.
func setDotted(doc map[string]interface{}, path string, value interface{}) {
	top, field, nested := strings.Cut(path, ".")
	if !nested {
		doc[path] = value
		return
	}
	parent := toMap(doc[top])
	if parent == nil {
		parent = map[string]interface{}{}
	}
	parent[field] = value
	doc[top] = parent
}

func getDotted(doc map[string]interface{}, path string) interface{} {
	top, field, nested := strings.Cut(path, ".")
	if !nested {
		return doc[path]
	}
	return toMap(doc[top])[field]
}
