package sqlinline

const QInsertChallenge = `--sql d1f1d858-b1f3-4601-99b8-393244d982cf
insert into auth_challenges(id, wallet_address, nonce, expires_at)
values ($1, $2, $3, $4);
`

// QRedeemChallenge flips the used flag exactly once; an expired or already
// used challenge returns no row.
const QRedeemChallenge = `--sql 43820320-21a6-466e-bd83-0ad43201a248
update auth_challenges
set used = true
where id = $1
  and used = false
  and expires_at > $2
returning id, wallet_address, nonce, used, expires_at, created_at;
`
