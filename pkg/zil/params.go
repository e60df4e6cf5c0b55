package zil

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

type Params []Param

var (
	ErrParamNotFound = errors.New("param not found")
	ErrParamType     = errors.New("param has unexpected type")
)

const (
	TypeAddress = "ByStr20"
	TypeUint128 = "Uint128"
	TypeUint256 = "Uint256"
	TypeUint32  = "Uint32"
	TypeString  = "String"
	TypeBool    = "Bool"
)

type Param struct {
	Type  string `json:"type"`
	Value *Value `json:"value,omitempty"`
	VName string `json:"vname"`
}

type Value struct {
	Primitive interface{} `json:"primitive,omitempty"`

	ArgTypes    interface{} `json:"argtypes,omitempty"`
	Arguments   []*Value    `json:"arguments,omitempty"`
	Constructor string      `json:"constructor,omitempty"`
}

func NewParam(vName, paramType string, primitive interface{}) Param {
	return Param{Type: paramType, VName: vName, Value: &Value{Primitive: primitive}}
}

func Address(vName, address string) Param {
	return NewParam(vName, TypeAddress, address)
}

// Uint128 renders amounts as decimal strings, the way the chain serialises them.
func Uint128(vName string, amount *big.Int) Param {
	if amount == nil {
		amount = new(big.Int)
	}
	return NewParam(vName, TypeUint128, amount.String())
}

func Uint256(vName string, value uint64) Param {
	return NewParam(vName, TypeUint256, strconv.FormatUint(value, 10))
}

func String(vName, value string) Param {
	return NewParam(vName, TypeString, value)
}

func Bool(vName string, value bool) Param {
	constructor := "False"
	if value {
		constructor = "True"
	}
	return Param{Type: TypeBool, VName: vName, Value: &Value{Constructor: constructor, ArgTypes: []interface{}{}, Arguments: []*Value{}}}
}

func (p Params) GetParam(vName string) (Param, error) {
	for _, param := range p {
		if param.VName == vName {
			return param, nil
		}
	}
	return Param{}, fmt.Errorf("%w: %s", ErrParamNotFound, vName)
}

func (p Params) HasParam(vName string, paramType string) bool {
	param, err := p.GetParam(vName)
	if err != nil {
		return false
	}
	return param.Type == paramType
}

func (p Params) GetString(vName string) (string, error) {
	param, err := p.GetParam(vName)
	if err != nil {
		return "", err
	}
	if param.Value == nil {
		return "", fmt.Errorf("%w: %s has no value", ErrParamType, vName)
	}
	s, ok := param.Value.Primitive.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrParamType, vName, param.Value.Primitive)
	}
	return s, nil
}

func (p Params) GetUint64(vName string) (uint64, error) {
	s, err := p.GetString(vName)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, 64)
}

func (p Params) GetAmount(vName string) (*big.Int, error) {
	s, err := p.GetString(vName)
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an amount", ErrParamType, vName)
	}
	return amount, nil
}

func (p Params) GetBool(vName string) (bool, error) {
	param, err := p.GetParam(vName)
	if err != nil {
		return false, err
	}
	if param.Value == nil {
		return false, fmt.Errorf("%w: %s has no value", ErrParamType, vName)
	}
	switch param.Value.Constructor {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s is not a Bool", ErrParamType, vName)
}
