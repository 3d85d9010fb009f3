package spill

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"
	"github.com/barakmich/mmap-go"
)

const defaultVecsPerFile = 200000

const (
	nodeAxis byte = iota
	nodeGeneral
	nodeLeaf
)

// Store persists a matrix and its index under one directory: mmap'd
// column pages, per-leaf point sets as roaring bitmaps, and the tree
// structure (hyperplanes plus layout) as flat binary records.
type Store struct {
	dir         string
	metadata    storeMetadata
	vectorPages map[int]mmap.MMap
	vectorFiles map[int]*os.File
}

type storeMetadata struct {
	Dimensions  int   `json:"dimensions"`
	Cols        int   `json:"cols"`
	VecsPerFile int   `json:"vecs_per_file"`
	VecFiles    []int `json:"vec_files"`
	Trees       int   `json:"trees"`
}

func OpenStore(directory string, dimensions int) (*Store, error) {
	s := &Store{
		dir: directory,
		metadata: storeMetadata{
			Dimensions:  dimensions,
			VecsPerFile: defaultVecsPerFile,
		},
		vectorPages: make(map[int]mmap.MMap),
		vectorFiles: make(map[int]*os.File),
	}
	err := s.openFiles()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	err := s.Sync()
	if err != nil {
		return err
	}
	for _, mm := range s.vectorPages {
		err := mm.Unmap()
		if err != nil {
			return err
		}
	}
	for _, f := range s.vectorFiles {
		err := f.Close()
		if err != nil {
			return err
		}
	}
	return s.saveMetadata()
}

func (s *Store) Sync() error {
	for _, mm := range s.vectorPages {
		err := mm.FlushAsync()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) openFiles() error {
	_, err := os.Stat(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return s.createNew()
	} else if err != nil {
		return err
	}

	_, err = os.Stat(filepath.Join(s.dir, "metadata.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return s.createNew()
	} else if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(s.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	err = json.NewDecoder(f).Decode(&s.metadata)
	if err != nil {
		return err
	}

	for _, k := range s.metadata.VecFiles {
		f, err := os.OpenFile(mkPageFilepath(s.dir, k), os.O_RDWR, 0755)
		if err != nil {
			return err
		}
		s.vectorFiles[k] = f
		mm, err := mmap.Map(f, mmap.RDWR, 0)
		if err != nil {
			return err
		}
		s.vectorPages[k] = mm
	}
	return nil
}

func (s *Store) createNew() error {
	err := os.MkdirAll(s.dir, 0755)
	if err != nil {
		return err
	}
	return s.saveMetadata()
}

func (s *Store) saveMetadata() error {
	f, err := os.Create(filepath.Join(s.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(s.metadata)
}

// HasIndexData reports whether a previous SaveIndex completed.
func (s *Store) HasIndexData() bool {
	return s.metadata.Trees > 0
}

func (s *Store) Cols() int {
	return s.metadata.Cols
}

func (s *Store) colSize() int {
	return s.metadata.Dimensions * 8
}

func (s *Store) PutColumn(id ID, v Vector) error {
	if len(v) != s.metadata.Dimensions {
		return ErrDimMismatch
	}
	var err error
	key := int(id) / s.metadata.VecsPerFile
	off := int(id) % s.metadata.VecsPerFile
	page, ok := s.vectorPages[key]
	if !ok {
		page, err = s.createPage(key)
		if err != nil {
			return err
		}
	}
	size := s.colSize()
	slice := page[off*size : (off+1)*size]
	for i, x := range v {
		binary.LittleEndian.PutUint64(slice[i*8:], math.Float64bits(x))
	}
	if int(id) >= s.metadata.Cols {
		s.metadata.Cols = int(id) + 1
	}
	return nil
}

func (s *Store) Column(id ID) (Vector, error) {
	key := int(id) / s.metadata.VecsPerFile
	off := int(id) % s.metadata.VecsPerFile
	page, ok := s.vectorPages[key]
	if !ok {
		return nil, ErrIDNotFound
	}
	size := s.colSize()
	slice := page[off*size : (off+1)*size]
	out := make(Vector, s.metadata.Dimensions)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(slice[i*8:]))
	}
	return out, nil
}

func (s *Store) createPage(key int) (mmap.MMap, error) {
	f, err := os.Create(mkPageFilepath(s.dir, key))
	if err != nil {
		return nil, err
	}
	err = f.Truncate(int64(s.colSize() * s.metadata.VecsPerFile))
	if err != nil {
		return nil, err
	}
	s.vectorFiles[key] = f
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, err
	}
	s.vectorPages[key] = mm
	s.metadata.VecFiles = append(s.metadata.VecFiles, key)
	err = s.saveMetadata()
	if err != nil {
		return nil, err
	}
	return mm, nil
}

// SaveMatrix writes every column of m into the page files.
func (s *Store) SaveMatrix(m *Matrix) error {
	for i := 0; i < m.Cols(); i++ {
		if err := s.PutColumn(ID(i), m.Col(i)); err != nil {
			return err
		}
	}
	return nil
}

// LoadMatrix reads all persisted columns back into memory.
func (s *Store) LoadMatrix() (*Matrix, error) {
	m := NewMatrix(s.metadata.Dimensions, s.metadata.Cols)
	for i := 0; i < s.metadata.Cols; i++ {
		col, err := s.Column(ID(i))
		if err != nil {
			return nil, err
		}
		m.SetCol(i, col)
	}
	return m, nil
}

// SaveIndex persists every built tree of ix.
func (s *Store) SaveIndex(ix *Index) error {
	if !ix.built {
		return ErrNotBuilt
	}
	for n, t := range ix.trees {
		if err := s.saveTree(n, t); err != nil {
			return err
		}
	}
	s.metadata.Trees = len(ix.trees)
	return s.saveMetadata()
}

// LoadIndex reconstructs a saved index over data. cfg must carry the
// same Metric the index was built with; splitter state is not persisted
// (hyperplanes are).
func (s *Store) LoadIndex(data *Matrix, cfg TreeConfig) (*Index, error) {
	if s.metadata.Trees == 0 {
		return nil, ErrNotBuilt
	}
	ix := NewIndex(data, s.metadata.Trees, cfg)
	for n := range ix.trees {
		t, err := s.loadTree(n, data, cfg)
		if err != nil {
			return nil, err
		}
		ix.trees[n] = t
	}
	ix.built = true
	return ix, nil
}

func (s *Store) saveTree(n int, t *Tree) error {
	buf := bytes.NewBuffer(nil)
	if err := s.writeNode(buf, t.root); err != nil {
		return err
	}
	f, err := os.Create(mkTreeFilepath(s.dir, n))
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, buf); err != nil {
		return err
	}
	for leaf, node := range t.leaves {
		bm := roaring.NewBitmap()
		for _, p := range node.points {
			bm.AddInt(p)
		}
		if err := s.saveLeafBitmap(n, leaf, bm); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeNode(buf *bytes.Buffer, node *treeNode) error {
	nbuf := make([]byte, 8)
	if node.leaf >= 0 {
		buf.WriteByte(nodeLeaf)
		binary.LittleEndian.PutUint32(nbuf, uint32(node.leaf))
		buf.Write(nbuf[:4])
		return nil
	}
	overlap := byte(0)
	if node.overlap {
		overlap = 1
	}
	switch proj := node.hyp.Projection().(type) {
	case AxisProjection:
		buf.WriteByte(nodeAxis)
		buf.WriteByte(overlap)
		binary.LittleEndian.PutUint32(nbuf, uint32(proj.Dim()))
		buf.Write(nbuf[:4])
	case UnitProjection:
		buf.WriteByte(nodeGeneral)
		buf.WriteByte(overlap)
		for _, x := range proj.Direction() {
			binary.LittleEndian.PutUint64(nbuf, math.Float64bits(x))
			buf.Write(nbuf)
		}
	default:
		return fmt.Errorf("unknown projection type %T", proj)
	}
	binary.LittleEndian.PutUint64(nbuf, math.Float64bits(node.hyp.SplitValue()))
	buf.Write(nbuf)
	if err := s.writeNode(buf, node.left); err != nil {
		return err
	}
	return s.writeNode(buf, node.right)
}

func (s *Store) loadTree(n int, data *Matrix, cfg TreeConfig) (*Tree, error) {
	f, err := os.Open(mkTreeFilepath(s.dir, n))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t := NewTree(data, cfg)
	r := bufio.NewReader(f)
	t.root, err = s.readNode(r, t, n)
	if err != nil {
		return nil, err
	}
	recomputeBounds(data, t.root)
	t.buildLeafBitmaps()
	return t, nil
}

func (s *Store) readNode(r *bufio.Reader, t *Tree, treeIdx int) (*treeNode, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	node := &treeNode{leaf: -1}
	if kind == nodeLeaf {
		nbuf := make([]byte, 4)
		if _, err := io.ReadFull(r, nbuf); err != nil {
			return nil, err
		}
		leaf := int(binary.LittleEndian.Uint32(nbuf))
		bm, err := s.loadLeafBitmap(treeIdx, leaf)
		if err != nil {
			return nil, err
		}
		node.leaf = leaf
		for _, x := range bm.ToArray() {
			node.points = append(node.points, int(x))
		}
		for len(t.leaves) <= leaf {
			t.leaves = append(t.leaves, nil)
		}
		t.leaves[leaf] = node
		return node, nil
	}

	overlap, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	node.overlap = overlap == 1

	nbuf := make([]byte, 8)
	var proj Projection
	switch kind {
	case nodeAxis:
		if _, err := io.ReadFull(r, nbuf[:4]); err != nil {
			return nil, err
		}
		proj = NewAxisProjection(int(binary.LittleEndian.Uint32(nbuf)))
	case nodeGeneral:
		dir := make(Vector, t.data.Dims())
		for i := range dir {
			if _, err := io.ReadFull(r, nbuf); err != nil {
				return nil, err
			}
			dir[i] = math.Float64frombits(binary.LittleEndian.Uint64(nbuf))
		}
		// Already unit length on disk; wrap without renormalizing error in.
		proj = UnitProjection{dir: dir}
	default:
		return nil, fmt.Errorf("unknown node record type %#x", kind)
	}
	if _, err := io.ReadFull(r, nbuf); err != nil {
		return nil, err
	}
	node.hyp = NewHyperplane(proj, math.Float64frombits(binary.LittleEndian.Uint64(nbuf)))
	if node.left, err = s.readNode(r, t, treeIdx); err != nil {
		return nil, err
	}
	if node.right, err = s.readNode(r, t, treeIdx); err != nil {
		return nil, err
	}
	return node, nil
}

// recomputeBounds rebuilds node bounds from the data bottom-up; they are
// cheaper to redo on load than to persist.
func recomputeBounds(data *Matrix, node *treeNode) *HRectBound {
	if node.leaf >= 0 {
		node.bound = HRectBoundOf(data, node.points)
		return node.bound
	}
	node.bound = recomputeBounds(data, node.left)
	right := recomputeBounds(data, node.right)
	b := NewHRectBound(data.Dims())
	b.Merge(node.bound)
	b.Merge(right)
	node.bound = b
	return node.bound
}

func (s *Store) saveLeafBitmap(tree int, leaf int, bm *roaring.Bitmap) error {
	f, err := os.Create(mkBmapFilepath(s.dir, tree, leaf))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = bm.WriteTo(f)
	return err
}

func (s *Store) loadLeafBitmap(tree int, leaf int) (*roaring.Bitmap, error) {
	f, err := os.Open(mkBmapFilepath(s.dir, tree, leaf))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bm := roaring.NewBitmap()
	_, err = bm.ReadFrom(f)
	return bm, err
}

func mkPageFilepath(basedir string, key int) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(key))
	indexStr := hex.EncodeToString(buf)
	return filepath.Join(basedir, fmt.Sprintf("%s.vec", indexStr))
}

func mkTreeFilepath(basedir string, tree int) string {
	return filepath.Join(basedir, fmt.Sprintf("%04d.tree", tree))
}

func mkBmapFilepath(basedir string, tree int, leaf int) string {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf, uint16(tree))
	treeStr := hex.EncodeToString(buf[:2])
	binary.BigEndian.PutUint32(buf, uint32(leaf))
	leafStr := hex.EncodeToString(buf[:4])
	return filepath.Join(basedir, fmt.Sprintf("%s-%s.bmap", treeStr, leafStr))
}
