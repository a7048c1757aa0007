package sqlinline

const QInsertSession = `--sql 6929af61-b6dd-4ecd-8f43-b22f2ef4e73b
insert into mint_sessions(
  id,
  wallet_address,
  status,
  progress,
  status_message,
  token_id,
  amount_koinu,
  expires_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8);
`

const sessionColumns = `
  id,
  wallet_address,
  status,
  progress,
  status_message,
  error_code,
  error_message,
  token_id,
  artifact_id,
  payment_address,
  amount_koinu,
  payment_tx_ref,
  payment_at,
  created_at,
  updated_at,
  expires_at,
  completed_at
`

const QSelectSession = `--sql d14428c2-8e92-46a6-bdd1-23790bacbb42
select` + sessionColumns + `
from mint_sessions
where id = $1;
`

const QHasActiveSession = `--sql 0013bf41-0d10-45da-ba52-bbe9e540b1b2
select exists(
  select 1
  from mint_sessions
  where wallet_address = $1
    and status not in ('CONFIRMED', 'GENERATION_FAILED', 'INSCRIPTION_FAILED', 'FAILED')
);
`

// QUpdateSessionIf is the per-session compare-and-set: the row is only
// touched when its status still equals $2. Zero rows back means the status
// already moved and the caller must treat it as a conflict.
const QUpdateSessionIf = `--sql 79bd14a0-febb-4785-9e73-c69384d1658d
update mint_sessions
set status          = $3,
    progress        = greatest(progress, $4),
    status_message  = $5,
    error_code      = coalesce($6, error_code),
    error_message   = coalesce($7, error_message),
    artifact_id     = coalesce($8, artifact_id),
    payment_address = coalesce($9, payment_address),
    amount_koinu    = coalesce($10, amount_koinu),
    payment_tx_ref  = coalesce($11, payment_tx_ref),
    payment_at      = coalesce($12, payment_at),
    completed_at    = coalesce($13, completed_at),
    updated_at      = now()
where id = $1
  and status = $2
returning` + sessionColumns + `;
`

const QExpireOverdueSessions = `--sql a7dd07a7-15b3-428a-bb96-a86cf5706f25
update mint_sessions
set status         = 'FAILED',
    status_message = 'Session expired',
    error_code     = 'expired',
    error_message  = 'mint window elapsed before completion',
    updated_at     = now()
where status not in ('CONFIRMED', 'GENERATION_FAILED', 'INSCRIPTION_FAILED', 'FAILED')
  and expires_at < $1;
`
