package authz

// defaultPolicies grant an action when the scope mapping granted it and the
// token covers the targeted tenant.
const defaultPolicies = `
permit(
  principal,
  action == CCF::Action::"read",
  resource
) when {
  principal.grantedActions.contains("read") &&
  (principal.tenants.contains("*") || principal.tenants.contains(resource.tenant))
};

permit(
  principal,
  action == CCF::Action::"write",
  resource
) when {
  principal.grantedActions.contains("write") &&
  (principal.tenants.contains("*") || principal.tenants.contains(resource.tenant))
};

permit(
  principal,
  action == CCF::Action::"admin",
  resource
) when {
  principal.grantedActions.contains("admin") &&
  (principal.tenants.contains("*") || principal.tenants.contains(resource.tenant))
};
`
