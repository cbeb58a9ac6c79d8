// Copyright 2024 Skiff Data
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package colexec

import (
	"context"
	"encoding/binary"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/container/nulls"
	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/container/vector"
)

// EncodeRowKeys builds one canonical key string per row from the given key
// vectors. Keys are prefix-free across columns (type tag, null marker and a
// length-prefixed payload per column), so two rows share a key exactly when
// every key column matches. hasNull[i] reports whether any key column is
// NULL in row i; grouping keeps such rows (NULL is its own group) while
// joins drop them.
func EncodeRowKeys(ctx context.Context, vecs []*vector.Vector, n int) (keys []string, hasNull []bool, err error) {
	for _, vec := range vecs {
		if vec.Typ.Oid == types.T_list || vec.Typ.Oid == types.T_sketch {
			return nil, nil, moerr.NewTypeMismatch(ctx, "%s columns cannot be hash keys", vec.Typ)
		}
	}
	keys = make([]string, n)
	hasNull = make([]bool, n)
	var buf []byte
	var lenBuf [binary.MaxVarintLen64]byte
	for i := 0; i < n; i++ {
		buf = buf[:0]
		for _, vec := range vecs {
			buf = append(buf, byte(vec.Typ.Oid))
			if nulls.Contains(vec.Nsp, uint64(i)) {
				buf = append(buf, 0)
				hasNull[i] = true
				continue
			}
			buf = append(buf, 1)
			cell := vec.RowBytes(nil, uint64(i))
			buf = append(buf, lenBuf[:binary.PutUvarint(lenBuf[:], uint64(len(cell)))]...)
			buf = append(buf, cell...)
		}
		keys[i] = string(buf)
	}
	return keys, hasNull, nil
}
