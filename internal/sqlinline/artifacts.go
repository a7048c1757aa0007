package sqlinline

const QInsertArtifact = `--sql 21dc7232-67a4-41ac-ba60-dd4d096c9a45
insert into artifacts(
  id,
  token_id,
  owner_address,
  status,
  rarity,
  traits,
  content_ref,
  prompt_used
)
values ($1, $2, $3, $4, $5, $6, $7, $8);
`

const artifactColumns = `
  id,
  token_id,
  owner_address,
  status,
  rarity,
  traits,
  content_ref,
  prompt_used,
  inscription_id,
  inscription_tx,
  inscribed_at,
  created_at,
  updated_at
`

const QSelectArtifactByID = `--sql ca52cd4c-1028-4d57-a369-5398ab113903
select` + artifactColumns + `
from artifacts
where id = $1;
`

const QSelectArtifactByToken = `--sql 0c0f25e5-8da9-4205-ac51-922be650a3f0
select` + artifactColumns + `
from artifacts
where token_id = $1;
`

// QFinalizeArtifact sets the inscription reference at most once: a row whose
// inscription_id is already filled is left untouched.
const QFinalizeArtifact = `--sql 3a9abdc6-f491-4116-9810-30a3311850b3
update artifacts
set status         = 'CONFIRMED',
    inscription_id = $2,
    inscription_tx = $3,
    inscribed_at   = $4,
    updated_at     = now()
where id = $1
  and inscription_id = '';
`
