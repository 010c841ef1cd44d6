package types

// unknownType is the type of an untyped NULL literal.
type unknownType struct{}

func (t *unknownType) Name() string {
	return "UNKNOWN"
}

func (t *unknownType) Size() int {
	return 0
}

func (t *unknownType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *unknownType) Serialize(v Value) ([]byte, error) {
	return nil, nil
}

func (t *unknownType) Deserialize(data []byte) (Value, error) {
	return NewNullValue(), nil
}

func (t *unknownType) IsValid(v Value) bool {
	return v.Null
}

func (t *unknownType) Zero() Value {
	return NewNullValue()
}

// Unknown is the unknown type instance
var Unknown DataType = &unknownType{}
