package encoding

import "encoding/json"

// StructToJsonBytes converts a struct to JSON bytes
func StructToJsonBytes(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// StructToIndentedJson renders v for terminal output.
func StructToIndentedJson(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// JsonBytesToStruct converts JSON bytes to a struct
func JsonBytesToStruct(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
