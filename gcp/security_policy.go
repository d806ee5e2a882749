package gcp

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/compute/v1"
)

func SecurityPolicyURL(project, name string) string {
	return fmt.Sprintf("https://www.googleapis.com/compute/v1/projects/%s/global/securityPolicies/%s", project, name)
}

func makeSecurityPolicy(name, description string) *compute.SecurityPolicy {
	return &compute.SecurityPolicy{
		Name:        name,
		Description: description,
		Rules: []*compute.SecurityPolicyRule{
			{
				Action:      SecurityPolicyAllow,
				Priority:    SecurityPolicyDefaultPriority,
				Description: "default rule",
				Match: &compute.SecurityPolicyRuleMatcher{
					VersionedExpr: VersionedExprSrcIPsV1,
					Config: &compute.SecurityPolicyRuleMatcherConfig{
						SrcIpRanges: []string{SecurityPolicyDefaultMatch},
					},
				},
			},
		},
	}
}

func makeIPDenyRule(priority int64, cidr, action, description string) *compute.SecurityPolicyRule {
	return &compute.SecurityPolicyRule{
		Action:      action,
		Priority:    priority,
		Description: description,
		Match: &compute.SecurityPolicyRuleMatcher{
			VersionedExpr: VersionedExprSrcIPsV1,
			Config: &compute.SecurityPolicyRuleMatcherConfig{
				SrcIpRanges: []string{cidr},
			},
		},
	}
}

func ruleMatchesIPDeny(rule *compute.SecurityPolicyRule, cidr, action string) bool {
	if rule == nil || rule.Action != action {
		return false
	}

	return len(RuleSrcRanges(rule)) == 1 && RuleSrcRanges(rule)[0] == cidr
}

// RuleSrcRanges returns the source IP ranges a rule matches, nil for rules
// built on attribute expressions.
func RuleSrcRanges(rule *compute.SecurityPolicyRule) []string {
	if rule == nil || rule.Match == nil || rule.Match.Config == nil {
		return nil
	}

	return rule.Match.Config.SrcIpRanges
}

func GetSecurityPolicy(ctx context.Context, pctx *config.LabContext, project, name string) (*compute.SecurityPolicy, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	policy, err := cli.SecurityPolicies.Get(project, name).Do()
	if err != nil {
		return nil, fmt.Errorf("error getting security policy '%s': %w", name, err)
	}

	return policy, nil
}

// EnsureSecurityPolicy creates the policy with its default allow rule unless
// one with the same name is already there. Returns whether it was created.
func EnsureSecurityPolicy(ctx context.Context, pctx *config.LabContext, project, name, description string) (bool, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return false, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	_, err = cli.SecurityPolicies.Get(project, name).Do()
	if err == nil {
		return false, nil
	}

	if !ErrIs404(err) {
		return false, fmt.Errorf("error getting security policy '%s': %w", name, err)
	}

	oper, err := cli.SecurityPolicies.Insert(project, makeSecurityPolicy(name, description)).Do()
	if ErrIs409(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("error creating security policy '%s': %w", name, err)
	}

	err = WaitForGlobalComputeOperation(cli, project, oper.Name)
	if err != nil {
		return false, fmt.Errorf("error waiting for security policy '%s': %w", name, err)
	}

	return true, nil
}

// EnsureIPDenyRule puts a source-IP deny rule at the given priority. An
// existing rule with the same action and range is left alone, a diverging one
// is patched in place. Returns whether anything changed.
func EnsureIPDenyRule(ctx context.Context, pctx *config.LabContext, project, policy string, priority int64, cidr, action, description string) (bool, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return false, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	rule := makeIPDenyRule(priority, cidr, action, description)

	cur, err := cli.SecurityPolicies.GetRule(project, policy).Priority(priority).Do()

	switch {
	case err == nil && ruleMatchesIPDeny(cur, cidr, action):
		return false, nil

	case err == nil:
		oper, err := cli.SecurityPolicies.PatchRule(project, policy, rule).Priority(priority).Do()
		if err != nil {
			return false, fmt.Errorf("error patching rule %d of security policy '%s': %w", priority, policy, err)
		}

		err = WaitForGlobalComputeOperation(cli, project, oper.Name)
		if err != nil {
			return false, fmt.Errorf("error waiting for rule %d of security policy '%s': %w", priority, policy, err)
		}

		return true, nil

	case ErrIs404(err):
		oper, err := cli.SecurityPolicies.AddRule(project, policy, rule).Do()
		if err != nil {
			return false, fmt.Errorf("error adding rule %d to security policy '%s': %w", priority, policy, err)
		}

		err = WaitForGlobalComputeOperation(cli, project, oper.Name)
		if err != nil {
			return false, fmt.Errorf("error waiting for rule %d of security policy '%s': %w", priority, policy, err)
		}

		return true, nil

	default:
		return false, fmt.Errorf("error getting rule %d of security policy '%s': %w", priority, policy, err)
	}
}

func RemoveSecurityPolicyRule(ctx context.Context, pctx *config.LabContext, project, policy string, priority int64) error {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp compute client: %w", err)
	}

	oper, err := cli.SecurityPolicies.RemoveRule(project, policy).Priority(priority).Do()
	if err != nil {
		return fmt.Errorf("error removing rule %d from security policy '%s': %w", priority, policy, err)
	}

	err = WaitForGlobalComputeOperation(cli, project, oper.Name)
	if err != nil {
		return fmt.Errorf("error waiting for rule removal from security policy '%s': %w", policy, err)
	}

	return nil
}

func DeleteSecurityPolicy(ctx context.Context, pctx *config.LabContext, project, name string) error {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp compute client: %w", err)
	}

	oper, err := cli.SecurityPolicies.Delete(project, name).Do()
	if err != nil {
		return fmt.Errorf("error deleting security policy '%s': %w", name, err)
	}

	err = WaitForGlobalComputeOperation(cli, project, oper.Name)
	if err != nil {
		return fmt.Errorf("error waiting for security policy '%s' deletion: %w", name, err)
	}

	return nil
}
