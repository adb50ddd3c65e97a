/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package trigger

import "fmt"

// Compiled is a trigger tree with every node's Index assigned by depth-first traversal, so a
// per-(key,window) finished-bit bitmap can be sized once and indexed by node instead of by
// pointer identity.
type Compiled struct {
	Root  *Trigger
	Nodes []*Trigger
}

// Compile assigns DFS indices to every node under root (root included) and checks the tree's
// structure at construction time: it rejects a nil node, a Repeatedly without a sub-trigger,
// and a composite with no children. It does not check the tree against a WindowFn.
func Compile(root *Trigger) (*Compiled, error) {
	c := &Compiled{Root: root}
	var walk func(t *Trigger) error
	walk = func(t *Trigger) error {
		if t == nil {
			return fmt.Errorf("trigger: nil node in tree")
		}
		t.index = len(c.Nodes)
		c.Nodes = append(c.Nodes, t)
		switch t.Kind {
		case Repeatedly:
			if t.Sub == nil {
				return fmt.Errorf("trigger: Repeatedly node missing Sub")
			}
			if err := walk(t.Sub); err != nil {
				return err
			}
			if t.Final != nil {
				if err := walk(t.Final); err != nil {
					return err
				}
			}
		case AfterEach, AfterFirst, AfterAll:
			if len(t.Children) == 0 {
				return fmt.Errorf("trigger: %v node has no children", t.Kind)
			}
			for _, child := range t.Children {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return c, nil
}

// NodeCount returns the number of nodes in the compiled tree, the size a TriggerState's
// finished bitmap must be allocated with.
func (c *Compiled) NodeCount() int { return len(c.Nodes) }
