// Package carbonview is the session and authorization core of the EV
// carbon-credit marketplace console.
//
// Session lifecycle:
//   - The console holds exactly one Session at a time, driven by the Manager
//     state machine: idle -> loading -> authenticated | unauthenticated.
//     Only Manager methods mutate the session; everything else observes
//     snapshots through Current or OnChange.
//   - Credentials are opaque bearer tokens issued by the marketplace
//     platform. They live in a TokenStore that survives restarts; any 401
//     from the platform clears the store so a stale token can never wedge
//     the console.
//
// Route authorization:
//   - Access is declared once, in RouteRules: a URL prefix maps to the single
//     role allowed to view it. RouteGuard consults that table on every
//     request, redirecting anonymous visitors to the login screen (with the
//     original path preserved) and wrong-role visitors to their own home
//     dashboard.
//
// Page handlers and the domain API client build on this core but never
// mutate it; see the api and pages packages.
package carbonview
