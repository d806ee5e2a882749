// Package edge declares the lab's Cloud Armor slice as Pulumi resources: the
// security policy with its ordered rule list and the firewall rule that lets
// Google's health checkers reach the backend instances.
//
// The backend service is never created here, the lab always runs against an
// existing load balancer.
package edge

import (
	"fmt"
	"net"
	"strings"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v6/go/gcp/compute"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// PolicyArgs describes the deny list the policy enforces.
type PolicyArgs struct {
	Project     string
	Description string
	DenyStatus  int

	// BasePriority is where the deny rules start, each following rule takes
	// the next priority.
	BasePriority int

	// DeniedRanges are source addresses to block, bare IPs or CIDRs.
	DeniedRanges []string

	// DeniedExprs are CEL expressions evaluated against the request, e.g.
	// "origin.region_code == 'XX'".
	DeniedExprs []string
}

// ruleSpec is the resolved form of one policy rule before it becomes a
// Pulumi input.
type ruleSpec struct {
	priority int
	action   string
	srcRange string
	expr     string
	desc     string
}

// rulePlan orders the rules: one deny rule per source range starting at the
// base priority, expression rules after them, and the mandatory default allow
// rule at the lowest priority.
func rulePlan(args *PolicyArgs) ([]ruleSpec, error) {
	action := fmt.Sprintf("deny(%d)", args.DenyStatus)
	prio := args.BasePriority

	var specs []ruleSpec

	for _, r := range args.DeniedRanges {
		cidr := gcp.SingleIPRange(strings.TrimSpace(r))

		_, _, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid source range", r)
		}

		specs = append(specs, ruleSpec{
			priority: prio,
			action:   action,
			srcRange: cidr,
			desc:     fmt.Sprintf("deny %s", cidr),
		})
		prio++
	}

	for _, expr := range args.DeniedExprs {
		specs = append(specs, ruleSpec{
			priority: prio,
			action:   action,
			expr:     expr,
			desc:     "deny by request attributes",
		})
		prio++
	}

	specs = append(specs, ruleSpec{
		priority: int(gcp.SecurityPolicyDefaultPriority),
		action:   gcp.SecurityPolicyAllow,
		srcRange: gcp.SecurityPolicyDefaultMatch,
		desc:     "default rule",
	})

	return specs, nil
}

func (r ruleSpec) toRuleArgs() *compute.SecurityPolicyRuleArgs {
	rule := &compute.SecurityPolicyRuleArgs{
		Action:      pulumi.String(r.action),
		Priority:    pulumi.Int(r.priority),
		Description: pulumi.String(r.desc),
	}

	if r.expr != "" {
		rule.Match = &compute.SecurityPolicyRuleMatchArgs{
			Expr: &compute.SecurityPolicyRuleMatchExprArgs{
				Expression: pulumi.String(r.expr),
			},
		}

		return rule
	}

	rule.Match = &compute.SecurityPolicyRuleMatchArgs{
		VersionedExpr: pulumi.String(gcp.VersionedExprSrcIPsV1),
		Config: &compute.SecurityPolicyRuleMatchConfigArgs{
			SrcIpRanges: pulumi.StringArray{pulumi.String(r.srcRange)},
		},
	}

	return rule
}

// NewPolicy declares the Cloud Armor policy with its full rule list.
func NewPolicy(ctx *pulumi.Context, name string, args *PolicyArgs) (*compute.SecurityPolicy, error) {
	specs, err := rulePlan(args)
	if err != nil {
		return nil, err
	}

	rules := make(compute.SecurityPolicyRuleArray, 0, len(specs))
	for _, spec := range specs {
		rules = append(rules, spec.toRuleArgs())
	}

	policy, err := compute.NewSecurityPolicy(ctx, name, &compute.SecurityPolicyArgs{
		Name:        pulumi.String(name),
		Project:     pulumi.String(args.Project),
		Description: pulumi.String(args.Description),
		Type:        pulumi.String("CLOUD_ARMOR"),
		Rules:       rules,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating security policy '%s': %w", name, err)
	}

	return policy, nil
}
