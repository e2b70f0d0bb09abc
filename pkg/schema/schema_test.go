/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema_test.go
Description: Tests for schema tree paths, cloning, attachment and metadata caching.
*/

package schema_test

import (
	"testing"

	"github.com/kleascm/fieldlens/pkg/metadata"
	"github.com/kleascm/fieldlens/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndJoinPath(t *testing.T) {
	tests := []struct {
		path     string
		segments []string
	}{
		{"", nil},
		{"name", []string{"name"}},
		{"user.name", []string{"user", "name"}},
		{"tags[]", []string{"tags", "[]"}},
		{"user.tags[].label", []string{"user", "tags", "[]", "label"}},
		{"matrix[][]", []string{"matrix", "[]", "[]"}},
		{`a\.b`, []string{`a\.b`}},
		{`x.a\.b.c`, []string{"x", `a\.b`, "c"}},
		{`list\[]`, []string{`list\[]`}},
		{`back\\slash.k`, []string{`back\\slash`, "k"}},
		{`obj.\_`, []string{"obj", `\_`}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.segments, schema.SplitPath(tt.path))
			assert.Equal(t, tt.path, schema.JoinPath(tt.segments...))
		})
	}
}

// TestEscapeKey tests that escaped keys round trip and stay one segment
func TestEscapeKey(t *testing.T) {
	keys := []string{"plain", "a.b", "c[]", `d\e`, "", "[]", "ünï.code"}
	for _, key := range keys {
		seg := schema.EscapeKey(key)
		assert.Equal(t, key, schema.UnescapeKey(seg), key)
		assert.Equal(t, []string{seg}, schema.SplitPath(seg), key)
		assert.Equal(t, []string{"root", seg}, schema.SplitPath(schema.JoinPath("root", seg)), key)
	}
	assert.NotEqual(t, schema.JoinPath("a", "b"), schema.JoinPath(schema.EscapeKey("a.b")))
	assert.NotEqual(t, schema.ItemsSegment, schema.EscapeKey("[]"))
}

// TestAttachEscapedKeys tests that a dotted key and a nested field become separate nodes
func TestAttachEscapedKeys(t *testing.T) {
	root := schema.NewNode("").WithTypes(schema.TypeObject)
	dotted := schema.JoinPath(schema.EscapeKey("a.b"))
	require.NoError(t, root.Attach(schema.NewNode(dotted).WithTypes(schema.TypeBoolean)))
	require.NoError(t, root.Attach(schema.NewNode("a.b").WithTypes(schema.TypeString)))

	assert.Equal(t, []string{schema.TypeBoolean}, root.Lookup(dotted).Types)
	assert.Equal(t, "a.b", root.Lookup(dotted).Name)
	assert.Equal(t, []string{schema.TypeString}, root.Lookup("a.b").Types)
	assert.Equal(t, "b", root.Lookup("a.b").Name)
}

func TestNewNodeName(t *testing.T) {
	n := schema.NewNode("user.address.city")
	assert.Equal(t, "city", n.Name)
	assert.Equal(t, "user.address.city", n.Path)
	assert.Empty(t, n.Types)
}

func TestCloneIsDeep(t *testing.T) {
	n := schema.NewNode("user").WithTypes(schema.TypeObject)
	require.NoError(t, n.Attach(schema.NewNode("user.name").WithTypes(schema.TypeString)))

	c := n.Clone()
	c.Types[0] = "mutated"
	c.Properties["name"].Types[0] = "mutated"

	assert.Equal(t, schema.TypeObject, n.Types[0])
	assert.Equal(t, schema.TypeString, n.Properties["name"].Types[0])
}

func TestAttachBuildsTree(t *testing.T) {
	root := schema.NewNode("").WithTypes(schema.TypeObject)

	require.NoError(t, root.Attach(schema.NewNode("user.tags[].label").WithTypes(schema.TypeString)))
	require.NoError(t, root.Attach(schema.NewNode("user").WithTypes(schema.TypeObject)))
	require.NoError(t, root.Attach(schema.NewNode("user.tags").WithTypes(schema.TypeArray)))

	user := root.Lookup("user")
	require.NotNil(t, user)
	assert.True(t, user.HasType(schema.TypeObject))

	tags := root.Lookup("user.tags")
	require.NotNil(t, tags)
	assert.True(t, tags.HasType(schema.TypeArray))
	require.NotNil(t, tags.Items, "replacing a node keeps its children")

	label := root.Lookup("user.tags[].label")
	require.NotNil(t, label)
	assert.True(t, label.HasType(schema.TypeString))

	assert.Nil(t, root.Lookup("user.missing"))
	assert.Error(t, root.Attach(schema.NewNode("")))
}

func TestWalkOrder(t *testing.T) {
	root := schema.NewNode("")
	for _, p := range []string{"b", "a", "a.z", "a.y", "c[]"} {
		require.NoError(t, root.Attach(schema.NewNode(p)))
	}

	var paths []string
	require.NoError(t, root.Walk(func(n *schema.Node) error {
		paths = append(paths, n.Path)
		return nil
	}))
	assert.Equal(t, []string{"", "a", "a.y", "a.z", "b", "c", "c[]"}, paths)
}

func TestSetMetadata(t *testing.T) {
	n := schema.NewNode("flag")
	m := metadata.New(10, schema.TypeBoolean)
	m.ValueHistogram.Add("true")
	m.Count = 1

	n.SetMetadata(m)
	require.NotNil(t, n.Metadata)
	assert.Equal(t, int64(1), n.Metadata.Count)
	assert.True(t, m.Equal(n.FieldMetadata()))

	// Recomputed metadata replaces the cached artifact
	m2 := metadata.New(10, schema.TypeBoolean)
	n.SetMetadata(m2)
	assert.Equal(t, int64(0), n.Metadata.Count)

	n.SetMetadata(nil)
	assert.Nil(t, n.Metadata)
	assert.Nil(t, n.FieldMetadata())
}
