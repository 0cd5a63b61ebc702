package model

// Document документ коллекции в notedb: id служит ключом, Data хранит поля
type Document struct {
	ID   string
	Data map[string]any
}

// Clone возвращает копию документа, не разделяющую map с оригиналом
func (d Document) Clone() Document {
	data := make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		data[k] = v
	}
	return Document{ID: d.ID, Data: data}
}
