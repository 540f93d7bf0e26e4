package validators

import (
	"fmt"
	"regexp"
	"strings"

	"inventory-backend/domain/config"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/pkg/errors"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/-]*$`)

// NodeValidator validates node-related domain rules
type NodeValidator struct {
	rules *config.DomainConfig
}

// NewNodeValidator creates a validator for rules. Nil rules use the defaults.
func NewNodeValidator(rules *config.DomainConfig) *NodeValidator {
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	return &NodeValidator{rules: rules}
}

// ValidateNode checks the fields a caller can set on a node. All problems
// are reported together under the details of one validation error.
func (v *NodeValidator) ValidateNode(node *entities.Node) error {
	problems := map[string]string{}

	if _, err := valueobjects.NewNodeIDFromString(node.ID); err != nil {
		problems["id"] = err.Error()
	}
	if msg := v.checkName(node.Name); msg != "" {
		problems["name"] = msg
	}
	if _, err := valueobjects.ParseNodeType(string(node.Type)); err != nil {
		problems["type"] = err.Error()
	}
	if msg := v.checkIdentifiers(node.Identifiers); msg != "" {
		problems["identifiers"] = msg
	}
	if msg := v.checkTags(node.Tags); msg != "" {
		problems["tags"] = msg
	}
	if len(node.Relations) > v.rules.MaxRelationEntries {
		problems["relations"] = fmt.Sprintf("at most %d relation entries allowed", v.rules.MaxRelationEntries)
	}

	if len(problems) == 0 {
		return nil
	}
	err := errors.NewValidationError(fmt.Sprintf("node %s is invalid", node.ID))
	for field, msg := range problems {
		err = err.WithDetail(field, msg)
	}
	return err
}

// ValidateEdit checks the size of a relation edit body.
func (v *NodeValidator) ValidateEdit(body map[string][]string) error {
	total := 0
	for _, targets := range body {
		total += len(targets)
	}
	if total > v.rules.MaxTargetsPerEdit {
		return errors.NewValidationError(
			fmt.Sprintf("relation edit names %d targets, at most %d allowed", total, v.rules.MaxTargetsPerEdit))
	}
	return nil
}

func (v *NodeValidator) checkName(name string) string {
	if len(strings.TrimSpace(name)) > v.rules.MaxNameLength {
		return fmt.Sprintf("must be at most %d characters", v.rules.MaxNameLength)
	}
	return ""
}

func (v *NodeValidator) checkIdentifiers(identifiers []string) string {
	if len(identifiers) > v.rules.MaxIdentifiers {
		return fmt.Sprintf("at most %d identifiers allowed", v.rules.MaxIdentifiers)
	}
	for _, identifier := range identifiers {
		if strings.TrimSpace(identifier) == "" {
			return "identifiers must not be blank"
		}
		if len(identifier) > v.rules.MaxIdentifierLen {
			return fmt.Sprintf("identifier %q is too long", identifier)
		}
	}
	return ""
}

func (v *NodeValidator) checkTags(tags []string) string {
	if len(tags) > v.rules.MaxTagsPerNode {
		return fmt.Sprintf("at most %d tags allowed", v.rules.MaxTagsPerNode)
	}
	for _, tag := range tags {
		if len(tag) > v.rules.MaxTagLength || !tagPattern.MatchString(tag) {
			return fmt.Sprintf("invalid tag %q", tag)
		}
	}
	return ""
}
