package relations

import (
	"fmt"
	"strconv"
	"strings"

	"inventory-backend/domain/core/entities"
	"inventory-backend/pkg/errors"
)

// RelationsField is the document field holding a node's relation list.
const RelationsField = "relations"

// PullInstruction is a path-keyed store patch that removes items from a
// list field, so stores can apply it as one atomic write.
type PullInstruction struct {
	// Path is "relations.<i>.targets" for a targets pull, or "relations"
	// for an entry pull.
	Path string `json:"path"`
	// Values are the ids to pull from a targets list.
	Values []string `json:"values,omitempty"`
	// RelationType names the entry an entry pull removes. The entry is only
	// removed if it has no targets left at write time.
	RelationType string `json:"relationType"`
}

// TargetsPath builds the dotted path of the targets list at index.
func TargetsPath(index int) string {
	return fmt.Sprintf("%s.%d.targets", RelationsField, index)
}

// IsEntryPull reports whether the instruction removes a whole entry.
func (p PullInstruction) IsEntryPull() bool {
	return p.Path == RelationsField
}

// EntryIndex parses the relation index out of a targets path.
func (p PullInstruction) EntryIndex() (int, error) {
	parts := strings.Split(p.Path, ".")
	if len(parts) != 3 || parts[0] != RelationsField || parts[2] != "targets" {
		return 0, fmt.Errorf("not a targets path: %q", p.Path)
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return 0, fmt.Errorf("bad index in path %q", p.Path)
	}
	return index, nil
}

// NormalizeTargets trims ids, drops blanks and duplicates, keeping first-seen order.
func NormalizeTargets(targets []string) []string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

// AddRelation unions targets into node's entry for relationType.
//
// A nil node, blank type or empty target list is a no-op. A self-target or a
// second target on a singleton type is rejected and the node is left as it was.
func (r *Registry) AddRelation(node *entities.Node, relationType string, targets []string) (*entities.Node, error) {
	targets = NormalizeTargets(targets)
	if node == nil || relationType == "" || len(targets) == 0 {
		return node, nil
	}

	for _, target := range targets {
		if target == node.ID {
			return node, errors.NewValidationError(
				fmt.Sprintf("node %s cannot hold a %s relation to itself", node.ID, relationType))
		}
	}

	index := node.RelationIndex(relationType)
	var merged []string
	if index >= 0 {
		merged = NormalizeTargets(append(append([]string(nil), node.Relations[index].Targets...), targets...))
	} else {
		merged = targets
	}

	if d, ok := r.Lookup(relationType); ok && d.Singleton && len(merged) > 1 {
		return node, errors.NewValidationError(
			fmt.Sprintf("node %s can only have one %s relation, got %d targets", node.ID, relationType, len(merged))).
			WithDetail("relationType", relationType).
			WithDetail("targets", merged)
	}

	if index >= 0 {
		node.Relations[index].Targets = merged
	} else {
		node.Relations = append(node.Relations, entities.RelationEntry{
			RelationType: relationType,
			Targets:      merged,
		})
	}
	return node, nil
}

// RemoveRelation removes targets from node's entry for relationType and
// drops the entry once it is empty. Missing inputs are a no-op.
func (r *Registry) RemoveRelation(node *entities.Node, relationType string, targets []string) (*entities.Node, error) {
	targets = NormalizeTargets(targets)
	if node == nil || relationType == "" || len(targets) == 0 {
		return node, nil
	}

	index := node.RelationIndex(relationType)
	if index < 0 {
		return node, nil
	}

	remaining := without(node.Relations[index].Targets, targets)
	if len(remaining) == 0 {
		node.Relations = append(node.Relations[:index:index], node.Relations[index+1:]...)
	} else {
		node.Relations[index].Targets = remaining
	}
	return node, nil
}

// TargetsToBeRemoved computes the pull that strips targets from node's
// entry for relationType. The bool is false when there is nothing to do.
func (r *Registry) TargetsToBeRemoved(node *entities.Node, relationType string, targets []string) (PullInstruction, bool) {
	targets = NormalizeTargets(targets)
	if node == nil || relationType == "" || len(targets) == 0 {
		return PullInstruction{}, false
	}

	index := node.RelationIndex(relationType)
	if index < 0 {
		return PullInstruction{}, false
	}

	present := intersect(node.Relations[index].Targets, targets)
	if len(present) == 0 {
		return PullInstruction{}, false
	}

	return PullInstruction{
		Path:         TargetsPath(index),
		Values:       present,
		RelationType: relationType,
	}, true
}

// RelationsToBeRemoved computes the pull that drops node's entry for
// relationType once targets are stripped from it. The bool is false when
// the entry would keep other targets or does not exist.
func (r *Registry) RelationsToBeRemoved(node *entities.Node, relationType string, targets []string) (PullInstruction, bool) {
	targets = NormalizeTargets(targets)
	if node == nil || relationType == "" || len(targets) == 0 {
		return PullInstruction{}, false
	}

	index := node.RelationIndex(relationType)
	if index < 0 {
		return PullInstruction{}, false
	}

	if len(without(node.Relations[index].Targets, targets)) > 0 {
		return PullInstruction{}, false
	}

	return PullInstruction{
		Path:         RelationsField,
		RelationType: relationType,
	}, true
}

// NormalizeRelations cleans caller-supplied relations at node creation:
// entries of the same type are merged, targets deduplicated and empty
// entries dropped. Self-targets and singleton overflow are rejected.
func (r *Registry) NormalizeRelations(node *entities.Node) error {
	if node == nil || len(node.Relations) == 0 {
		return nil
	}

	supplied := node.Relations
	node.Relations = nil
	for _, entry := range supplied {
		if _, err := r.AddRelation(node, strings.TrimSpace(entry.RelationType), entry.Targets); err != nil {
			node.Relations = supplied
			return err
		}
	}
	return nil
}

// ApplyPull applies a pull instruction to an in-memory node the way a store
// would. It returns false when the instruction did not match anything.
func ApplyPull(node *entities.Node, pull PullInstruction) (bool, error) {
	if pull.IsEntryPull() {
		index := node.RelationIndex(pull.RelationType)
		if index < 0 || len(node.Relations[index].Targets) > 0 {
			return false, nil
		}
		node.Relations = append(node.Relations[:index:index], node.Relations[index+1:]...)
		return true, nil
	}

	index, err := ResolvePullIndex(node, pull)
	if err != nil || index < 0 {
		return false, err
	}
	before := len(node.Relations[index].Targets)
	node.Relations[index].Targets = without(node.Relations[index].Targets, pull.Values)
	return len(node.Relations[index].Targets) != before, nil
}

// ResolvePullIndex finds the entry a targets pull applies to. The index in
// the path is where the entry sat when the pull was computed; if another
// write has shifted the list since, the entry is found by RelationType.
// It returns -1 when the entry no longer exists.
func ResolvePullIndex(node *entities.Node, pull PullInstruction) (int, error) {
	index, err := pull.EntryIndex()
	if err != nil {
		return -1, err
	}
	if index < len(node.Relations) && node.Relations[index].RelationType == pull.RelationType {
		return index, nil
	}
	return node.RelationIndex(pull.RelationType), nil
}

func without(list, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}
	out := make([]string, 0, len(list))
	for _, id := range list {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

func intersect(list, want []string) []string {
	have := make(map[string]bool, len(list))
	for _, id := range list {
		have[id] = true
	}
	out := make([]string, 0, len(want))
	for _, id := range want {
		if have[id] {
			out = append(out, id)
		}
	}
	return out
}
