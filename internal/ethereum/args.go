// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ethereum

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseArgs converts command line strings into the Go values the abi
// packer expects for each input. Arrays are given as JSON arrays.
func ParseArgs(inputs abi.Arguments, raw []string) ([]interface{}, error) {
	if len(raw) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments (%s), got %d", len(inputs), describeArgs(inputs), len(raw))
	}
	values := make([]interface{}, len(inputs))
	for i, input := range inputs {
		v, err := parseArg(input.Type, raw[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("invalid value for argument '%s' (%s): %w", name, input.Type.String(), err)
		}
		values[i] = v
	}
	return values, nil
}

func describeArgs(inputs abi.Arguments) string {
	parts := make([]string, len(inputs))
	for i, input := range inputs {
		parts[i] = strings.TrimSpace(input.Type.String() + " " + input.Name)
	}
	return strings.Join(parts, ", ")
}

func parseArg(t abi.Type, s string) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("'%s' is not a hex address", s)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.StringTy:
		return s, nil
	case abi.BytesTy:
		return hexutil.Decode(s)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit in bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.IntTy, abi.UintTy:
		return parseInteger(t, s)
	case abi.SliceTy, abi.ArrayTy:
		return parseList(t, s)
	default:
		return nil, fmt.Errorf("type %s is not supported on the command line", t.String())
	}
}

func parseInteger(t abi.Type, s string) (interface{}, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("'%s' is not an integer", s)
	}
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("'%s' is negative", s)
	}
	if t.T == abi.UintTy && n.BitLen() > t.Size {
		return nil, fmt.Errorf("'%s' overflows uint%d", s, t.Size)
	}
	if t.T == abi.IntTy && n.BitLen() > t.Size-1 && !(n.Sign() < 0 && isMinInt(n, t.Size)) {
		return nil, fmt.Errorf("'%s' overflows int%d", s, t.Size)
	}
	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		return n, nil
	}
	v := reflect.New(goType).Elem()
	if t.T == abi.UintTy {
		v.SetUint(n.Uint64())
	} else {
		v.SetInt(n.Int64())
	}
	return v.Interface(), nil
}

func isMinInt(n *big.Int, size int) bool {
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(size-1)))
	return n.Cmp(min) == 0
}

func parseList(t abi.Type, s string) (interface{}, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	var list reflect.Value
	if t.T == abi.ArrayTy {
		if len(elems) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(elems))
		}
		list = reflect.New(t.GetType()).Elem()
	} else {
		list = reflect.MakeSlice(t.GetType(), len(elems), len(elems))
	}
	for i, e := range elems {
		var str string
		if err := json.Unmarshal(e, &str); err != nil {
			str = string(e)
		}
		v, err := parseArg(*t.Elem, str)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		list.Index(i).Set(reflect.ValueOf(v))
	}
	return list.Interface(), nil
}
