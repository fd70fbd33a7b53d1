package serializer

import (
	"github.com/ValentinKolb/dTodo/rpc/common"
	"gopkg.in/yaml.v3"
)

// NewYAMLSerializer creates a new serializer using yaml documents
func NewYAMLSerializer() IRPCSerializer {
	return &yamlSerializerImpl{}
}

// yamlSerializerImpl implements the IRPCSerializer interface using yaml encoding
type yamlSerializerImpl struct {
}

// yamlMessage is the yaml layout of a common.Message.
// The JSON payload is kept as a string to stay readable.
type yamlMessage struct {
	MsgType string `yaml:"msg_type"`
	ID      int64  `yaml:"id,omitempty"`
	Value   string `yaml:"value,omitempty"`
	HasVal  bool   `yaml:"has_value,omitempty"`
	Err     string `yaml:"err,omitempty"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (y yamlSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if err := checkMessageType(msg.MsgType); err != nil {
		return nil, err
	}
	return yaml.Marshal(yamlMessage{
		MsgType: msg.MsgType.String(),
		ID:      msg.ID,
		Value:   string(msg.Value),
		HasVal:  msg.Value != nil,
		Err:     msg.Err,
	})
}

func (y yamlSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var m yamlMessage
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	msgType, err := common.ParseMessageType(m.MsgType)
	if err != nil {
		return err
	}

	*msg = common.Message{
		MsgType: msgType,
		ID:      m.ID,
		Err:     m.Err,
	}
	if m.HasVal {
		msg.Value = []byte(m.Value)
	}
	return nil
}
