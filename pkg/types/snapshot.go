package types

// StateSnapshot.state:
//   phase: "ready" | "paused" | "bidding" | "ended"
//   round: 1 | 2
//   cursor: number // index into queue
//   lot?: { tier: string, name: string, status: string, price: number, owner?: string }
//   current_price: number
//   leader?: string // manager id
//   remaining_ms: number // time left in the prelude or bid window
//   managers: [{ id, name, coin, connected, roster: { [player name]: { tier, name, price, round, forced } } }]
//   players: [{ tier, name, status, price, owner? }]
//   queue: string[] // player names for the current round
//
// status: "pending" | "sold" | "unsold" | "forced" | "unsold_final"
