package dispatch

// writeBackProtocol is the tail section every context snapshot carries
// (spec.md §4.4: "Write-back Protocol ← tail, never truncated"). It tells
// the agent how to record a decision and how claims/bindings/requests work,
// so the instructions survive even when the packer has to truncate the
// body.
const writeBackProtocol = `To record a decision, emit a decision event with
a stable key, the chosen value, and a short reason; later decisions with the
same key supersede earlier ones. To claim exclusive ownership of a set of
paths before editing them, record a claim with the path globs you intend to
touch, and unclaim it when you're done (SessionEnd does this automatically
for anything still claimed). To share an architectural decision with other
active sessions, record a binding (key/value/reason); the most recent
binding for a key wins. To ask another peer for something, record a request
addressed to their label; they ack it when handled.`

// coordinationProtocolIntro is prepended to the write-back protocol on
// SessionStart when this session is joining a project that already has
// other active peers, per the per-event contract: "if this is the first
// session for this project with peers, include the full coordination
// protocol in output."
const coordinationProtocolIntro = `This project has other active sessions.
Coordinate via the claims/bindings/requests described below before editing
files another peer may also be touching.`
