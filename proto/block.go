package proto

// BlockInfo carries the tagged field list ClickHouse prefixes every
// block with: is_overflows at tag 1, bucket_num at tag 2, a tag-0
// terminator.
type BlockInfo struct {
	IsOverflows bool
	BucketNum   int32
}

// DefaultBlockInfo is the zero-value info ClickHouse servers send for
// ordinary (non-aggregation-overflow) blocks.
func DefaultBlockInfo() BlockInfo {
	return BlockInfo{BucketNum: -1}
}

func decodeBlockInfo(r *Reader) (BlockInfo, error) {
	info := DefaultBlockInfo()
	for {
		tag, err := r.UVarint()
		if err != nil {
			return info, err
		}
		switch tag {
		case 0:
			return info, nil
		case 1:
			v, err := r.Bool()
			if err != nil {
				return info, err
			}
			info.IsOverflows = v
		case 2:
			v, err := r.Int32()
			if err != nil {
				return info, err
			}
			info.BucketNum = v
		default:
			return info, Malformed("unknown block info tag")
		}
	}
}

func (info BlockInfo) encode(b *Buffer) {
	b.PutUVarint(1)
	b.PutBool(info.IsOverflows)
	b.PutUVarint(2)
	b.PutInt32(info.BucketNum)
	b.PutUVarint(0)
}

// NamedColumn pairs a column's declared name with its decoded data.
type NamedColumn struct {
	Name string
	Data Column
}

// Block is an ordered sequence of same-row-count Columns plus BlockInfo,
// the unit of result and INSERT transfer.
type Block struct {
	Info    BlockInfo
	Columns []NamedColumn
}

// Rows returns the block's row count (0 if it carries no columns).
func (blk *Block) Rows() int {
	if len(blk.Columns) == 0 {
		return 0
	}
	return blk.Columns[0].Data.Rows()
}

// Empty reports whether the block carries zero rows — an empty Data
// block is the INSERT-stream terminator.
func (blk *Block) Empty() bool { return blk.Rows() == 0 }

// EmptyBlock returns a terminator block with no columns.
func EmptyBlock() *Block {
	return &Block{Info: DefaultBlockInfo()}
}

// DecodeBlock reads a block: info, column count, row count, then each
// column's name, type string, and typed data. The row count decoded
// from the wire is not separately validated against Column.Rows() since
// DecodeColumn is handed rows directly and returning fewer would itself
// be a decode error.
func DecodeBlock(r *Reader) (*Block, error) {
	info, err := decodeBlockInfo(r)
	if err != nil {
		return nil, err
	}
	numCols, err := r.UVarint()
	if err != nil {
		return nil, err
	}
	if err := r.CheckCount(int(numCols)); err != nil {
		return nil, err
	}
	numRows, err := r.UVarint()
	if err != nil {
		return nil, err
	}
	if err := r.CheckCount(int(numRows)); err != nil {
		return nil, err
	}
	cols := make([]NamedColumn, 0, numCols)
	for i := uint64(0); i < numCols; i++ {
		name, err := r.Str()
		if err != nil {
			return nil, err
		}
		typeStr, err := r.Str()
		if err != nil {
			return nil, err
		}
		col, err := ParseColumn(ColumnType(typeStr))
		if err != nil {
			return nil, err
		}
		if col.Type().Conflicts(ColumnType(typeStr)) {
			return nil, Malformed("column codec does not match declared type " + typeStr)
		}
		if err := col.DecodeColumn(r, int(numRows)); err != nil {
			return nil, err
		}
		cols = append(cols, NamedColumn{Name: name, Data: col})
	}
	return &Block{Info: info, Columns: cols}, nil
}

// EncodeBlock writes blk in the same layout DecodeBlock reads.
func EncodeBlock(b *Buffer, blk *Block) {
	blk.Info.encode(b)
	b.PutUVarint(uint64(len(blk.Columns)))
	b.PutUVarint(uint64(blk.Rows()))
	for _, col := range blk.Columns {
		b.PutStr(col.Name)
		b.PutStr(string(col.Data.Type()))
		col.Data.EncodeColumn(b)
	}
}
