package addons

import (
	"github.com/qovery/addonctl/internal/params"
	"github.com/qovery/addonctl/internal/template"
)

// ingressNginxTemplate declares the NGINX ingress controller release.
//
// The controller service fronts a DigitalOcean load balancer; the hostname
// annotation points the LB at the cluster wildcard domain so proxy-protocol
// traffic from pods resolves through the LB instead of short-circuiting.
// External traffic policy stays Local to preserve client source IPs.
func ingressNginxTemplate() template.Template {
	annotation := func(name string) string {
		return "values.controller.service.annotations.service\\.beta\\.kubernetes\\.io/" + name
	}
	return template.Template{
		Kind: template.KindHelmRelease,
		Name: "nginx-ingress",
		Attributes: map[string]string{
			"chart":      "ingress-nginx",
			"repository": "https://kubernetes.github.io/ingress-nginx",
			"version":    "4.11.3",
			"namespace":  "nginx-ingress",

			"values.controller.ingressClassResource.default":      "true",
			"values.controller.admissionWebhooks.enabled":         "false",
			"values.controller.publishService.enabled":            "true",
			"values.controller.service.externalTrafficPolicy":     "Local",
			"values.controller.config.use-proxy-protocol":         "true",
			"values.controller.config.compute-full-forwarded-for": "true",
			"values.controller.resources.requests.cpu":            "100m",
			"values.controller.resources.requests.memory":         "128Mi",
			"values.controller.resources.limits.memory":           "256Mi",

			annotation("do-loadbalancer-name"):                  "nginx-ingress-{{ " + params.ParamClusterID + " }}",
			annotation("do-loadbalancer-hostname"):              "{{ " + params.ParamWildcardDNS + " }}",
			annotation("do-loadbalancer-enable-proxy-protocol"): "true",
		},
	}
}
