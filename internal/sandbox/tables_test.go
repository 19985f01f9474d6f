package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaTableInternIsStablePerName(t *testing.T) {
	st := newSchemaTable()

	id1 := st.intern("files")
	id2 := st.intern("files")
	require.Equal(t, id1, id2, "intern(\"files\") should return the same id both times")

	id3 := st.intern("strings")
	require.NotEqual(t, id1, id3, "different schema names must not collide")

	name, ok := st.nameOf(id1)
	require.True(t, ok)
	require.Equal(t, "files", name)

	_, ok = st.nameOf(9999)
	require.False(t, ok, "nameOf on an unknown id should report not-found")
}

func TestColumnTableInternPerSchemaAndOrder(t *testing.T) {
	ct := newColumnTable()

	a := ct.intern(1, "path")
	b := ct.intern(1, "size")
	again := ct.intern(1, "path")
	require.Equal(t, a, again, "intern(1, \"path\") should be stable")
	require.NotEqual(t, a, b, "distinct column names in the same schema must not collide")

	// Same column name in a different schema gets its own id sequence.
	c := ct.intern(2, "path")
	require.Equal(t, uint32(1), c, "first column in a fresh schema should be id 1")

	cols := ct.columns(1)
	require.Len(t, cols, 2)
	require.Equal(t, "path", cols[0].name)
	require.Equal(t, "size", cols[1].name)
}

func TestPendingRowSetAndFlush(t *testing.T) {
	pr := newPendingRow()
	cols := []columnEntry{{name: "path", id: 1}, {name: "size", id: 2}}

	pr.set(1, 1, StringValue("a.txt"))
	values := pr.flush(1, cols)

	require.Len(t, values, 2)
	require.Equal(t, `StringValue("a.txt")`, values[0].String())
	require.Equal(t, "NoneValue", values[1].String(), "unset column should flush as NoneValue")

	// flush clears state: a second flush sees None again even though we
	// never call set in between.
	again := pr.flush(1, cols)
	require.Equal(t, "NoneValue", again[0].String(), "flush did not clear state")
}

func TestOutputTableCreateWriteReadLength(t *testing.T) {
	ot := newOutputTable()

	fd := ot.create()
	require.Equal(t, int32(0), fd)
	fd2 := ot.create()
	require.Equal(t, int32(1), fd2)

	require.NoError(t, ot.write(fd, 0, []byte("hello")))
	// Writing past the current length grows the buffer, zero-filling the gap.
	require.NoError(t, ot.write(fd, 10, []byte("!")))

	n, err := ot.length(fd)
	require.NoError(t, err)
	require.Equal(t, uint64(11), n)

	dst := make([]byte, 11)
	read, err := ot.read(fd, 0, dst)
	require.NoError(t, err)
	require.Equal(t, uint64(11), read)
	require.Equal(t, "hello", string(dst[:5]))
	require.Equal(t, byte('!'), dst[10])

	_, err = ot.length(99)
	require.Error(t, err, "expected an error for an unknown fd")
}

func TestOutputTableSnapshotIsACopy(t *testing.T) {
	ot := newOutputTable()
	fd := ot.create()
	require.NoError(t, ot.write(fd, 0, []byte("abc")))

	snap := ot.snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "abc", string(snap[0]))

	require.NoError(t, ot.write(fd, 3, []byte("d")))
	require.Equal(t, "abc", string(snap[0]), "snapshot must not be mutated by a later write")
}
