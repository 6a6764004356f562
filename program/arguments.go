package program

import (
	"bytes"
	"encoding/gob"
	"errors"
	"sort"
)

// Arguments are the named instantiation parameters of a contract template.
type Arguments map[string]string

type argument struct {
	Name  string
	Value string
}

// Encode serializes the arguments. Names are sorted so that equal argument
// sets always produce equal bytes.
func (a Arguments) Encode() ([]byte, error) {
	list := make([]argument, 0, len(a))
	for name, value := range a {
		list = append(list, argument{Name: name, Value: value})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(list); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeArguments(data []byte) (Arguments, error) {
	if len(data) == 0 {
		return nil, errors.New("expect non-empty bytes")
	}

	var list []argument
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&list); err != nil {
		return nil, err
	}

	args := make(Arguments, len(list))
	for _, arg := range list {
		args[arg.Name] = arg.Value
	}
	return args, nil
}
