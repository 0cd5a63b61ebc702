package notedbv1

import "google.golang.org/protobuf/types/known/structpb"

// Identity ответ методов входа: {"uid", "idToken"}
func Identity(uid, idToken string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"uid":     structpb.NewStringValue(uid),
		"idToken": structpb.NewStringValue(idToken),
	}}
}

// ParseIdentity разбирает ответ метода входа
func ParseIdentity(msg *structpb.Struct) (uid, idToken string) {
	f := msg.GetFields()
	return f["uid"].GetStringValue(), f["idToken"].GetStringValue()
}

// CollectionRequest запрос к коллекции: {"path"}
func CollectionRequest(path string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"path": structpb.NewStringValue(path),
	}}
}

// DeleteRequest запрос удаления: {"path", "id"}
func DeleteRequest(path, id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"path": structpb.NewStringValue(path),
		"id":   structpb.NewStringValue(id),
	}}
}

// SetRequest запрос записи: {"path", "id", "merge", "data"}
func SetRequest(path, id string, data map[string]any, merge bool) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(data)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"path":  structpb.NewStringValue(path),
		"id":    structpb.NewStringValue(id),
		"merge": structpb.NewBoolValue(merge),
		"data":  structpb.NewStructValue(s),
	}}, nil
}

// UpdateRequest запрос слияния в существующий документ:
// {"path", "id", "merge": true, "exists": true, "data"}
func UpdateRequest(path, id string, data map[string]any) (*structpb.Struct, error) {
	req, err := SetRequest(path, id, data, true)
	if err != nil {
		return nil, err
	}
	req.Fields["exists"] = structpb.NewBoolValue(true)
	return req, nil
}

// CustomTokenRequest запрос входа по custom-токену: {"token"}
func CustomTokenRequest(token string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"token": structpb.NewStringValue(token),
	}}
}
