package converter

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"markdown-notes/internal/model"
)

const (
	sentinelKey             = "__sentinel"
	serverTimestampSentinel = "serverTimestamp"
)

// ServerTimestamp значение поля, которое notedb заменяет своим временем записи
func ServerTimestamp() map[string]any {
	return map[string]any{sentinelKey: serverTimestampSentinel}
}

// IsServerTimestamp проверяет, является ли значение поля маркером ServerTimestamp
func IsServerTimestamp(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	s, _ := m[sentinelKey].(string)
	return s == serverTimestampSentinel
}

// DocumentToProto конвертирует документ в proto {"id": ..., "data": {...}}
func DocumentToProto(doc model.Document) (*structpb.Struct, error) {
	data, err := structpb.NewStruct(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("structpb.NewStruct: %w", err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":   structpb.NewStringValue(doc.ID),
		"data": structpb.NewStructValue(data),
	}}, nil
}

// DocumentsToProto конвертирует снимок коллекции в proto {"documents": [...]}
func DocumentsToProto(docs []model.Document) (*structpb.Struct, error) {
	values := make([]*structpb.Value, 0, len(docs))
	for _, doc := range docs {
		s, err := DocumentToProto(doc)
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(s))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"documents": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}

// ProtoToDocuments разбирает снимок коллекции из proto
func ProtoToDocuments(snapshot *structpb.Struct) []model.Document {
	values := snapshot.GetFields()["documents"].GetListValue().GetValues()

	docs := make([]model.Document, 0, len(values))
	for _, v := range values {
		s := v.GetStructValue()
		if s == nil {
			continue
		}
		docs = append(docs, model.Document{
			ID:   s.GetFields()["id"].GetStringValue(),
			Data: s.GetFields()["data"].GetStructValue().AsMap(),
		})
	}

	return docs
}

// DocumentsToModels конвертирует документы коллекции заметок в domain модели
func DocumentsToModels(docs []model.Document) []model.Note {
	notes := make([]model.Note, len(docs))
	for i, doc := range docs {
		notes[i] = FieldsToModel(doc.ID, doc.Data)
	}
	return notes
}
